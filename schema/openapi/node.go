package openapi

import (
	"fmt"
	"sort"
	"strings"

	flagenv "github.com/goliatone/go-flagenv"
)

type schemaNode struct {
	Type        string
	Format      string
	Description string
	Properties  map[string]*schemaNode
	Required    []string
	Items       *schemaNode
	Default     any
	MinLength   *int
	MaxLength   *int
	extensions  map[string]any
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Description != "" {
		result["description"] = n.Description
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if n.MinLength != nil {
		result["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		result["maxLength"] = *n.MaxLength
	}
	return result
}

func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()

	if len(n.Properties) > 0 || n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for _, name := range sortedKeys(n.Properties) {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}

	if len(n.Required) > 0 {
		names := append([]string{}, n.Required...)
		sort.Strings(names)
		result["required"] = names
	}

	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}

	n.applyExtensions(result)
	return result
}

func (n *schemaNode) applyExtensions(result map[string]any) {
	for _, key := range sortedKeys(n.extensions) {
		result[key] = n.extensions[key]
	}
}

func (n *schemaNode) setExtension(key string, value any) {
	if n.extensions == nil {
		n.extensions = map[string]any{}
	}
	n.extensions[key] = value
}

// buildOptionsGraph turns option descriptors into an object schema with one
// property per option.
func buildOptionsGraph(fields []flagenv.FieldDescriptor, cfg generatorConfig) (*schemaNode, error) {
	root := newObjectNode()
	for _, field := range fields {
		name := strings.TrimSpace(field.Path)
		if name == "" {
			return nil, fmt.Errorf("openapi: option without a name")
		}
		if _, exists := root.Properties[name]; exists {
			continue
		}
		node, err := nodeForType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("openapi: option %q: %w", name, err)
		}
		node.Description = field.Description
		if !cfg.omitDefaults {
			node.Default = field.Default
		}
		if !cfg.omitSources {
			if field.Env != "" {
				node.setExtension("x-env", field.Env)
			}
			if len(field.Flags) > 0 {
				node.setExtension("x-flags", append([]string{}, field.Flags...))
			}
		}
		root.Properties[name] = node
		if field.Required {
			root.Required = append(root.Required, name)
		}
	}
	return root, nil
}

func nodeForType(typeName string) (*schemaNode, error) {
	if elem, ok := strings.CutPrefix(typeName, "[]"); ok {
		items, err := nodeForType(elem)
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil
	}
	switch typeName {
	case "string":
		return &schemaNode{Type: "string"}, nil
	case "char":
		one := 1
		return &schemaNode{Type: "string", MinLength: &one, MaxLength: &one}, nil
	case "bool":
		return &schemaNode{Type: "boolean"}, nil
	case "int", "int8", "int16", "int32", "uint", "uint8", "uint16", "uint32":
		return &schemaNode{Type: "integer", Format: integerFormat(typeName)}, nil
	case "int64", "uint64":
		return &schemaNode{Type: "integer", Format: "int64"}, nil
	case "float32":
		return &schemaNode{Type: "number", Format: "float"}, nil
	case "float64":
		return &schemaNode{Type: "number", Format: "double"}, nil
	default:
		return nil, fmt.Errorf("unsupported type %q", typeName)
	}
}

func integerFormat(typeName string) string {
	switch typeName {
	case "int", "uint":
		return "int64"
	default:
		return "int32"
	}
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
