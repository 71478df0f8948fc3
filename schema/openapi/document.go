package openapi

import (
	"fmt"
	"sort"
)

const componentsPrefix = "#/components/schemas/"

// buildDocument renders the options object as the request body of the
// configured endpoint. The object is inlined unless a root component name is
// configured, in which case it is published under components and referenced.
func buildDocument(cfg generatorConfig, root *schemaNode) (map[string]any, error) {
	if root == nil {
		return nil, fmt.Errorf("openapi: root schema node cannot be nil")
	}

	body := root.inlineOpenAPI()
	document := map[string]any{
		"openapi": cfg.openAPIVersion,
		"info":    buildInfo(cfg.info),
	}
	if cfg.rootComponent != "" {
		document["components"] = map[string]any{
			"schemas": map[string]any{cfg.rootComponent: body},
		}
		body = map[string]any{"$ref": componentsPrefix + cfg.rootComponent}
	}
	document["paths"] = buildPaths(cfg, body)

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func buildInfo(info openapiInfo) map[string]any {
	out := map[string]any{
		"title":   info.Title,
		"version": info.Version,
	}
	if info.Description != "" {
		out["description"] = info.Description
	}
	return out
}

func buildPaths(cfg generatorConfig, body map[string]any) map[string]any {
	operation := map[string]any{
		"operationId": fmt.Sprintf("%s:%s", cfg.method, cfg.path),
		"summary":     "Resolve " + cfg.info.Title + " options",
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				optionsContentType: map[string]any{"schema": body},
			},
		},
		"responses": map[string]any{
			"204": map[string]any{"description": "Options accepted"},
			"400": map[string]any{"description": "Parsing or validation error"},
		},
	}

	return map[string]any{
		cfg.path: map[string]any{
			cfg.method: operation,
		},
	}
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	for _, key := range []string{"title", "version"} {
		if value, _ := info[key].(string); value == "" {
			return fmt.Errorf("openapi: info.%s must be set", key)
		}
	}

	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	keys := make([]string, 0, len(paths))
	for key := range paths {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, path := range keys {
		item, _ := paths[path].(map[string]any)
		if len(item) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", path)
		}
		for method, value := range item {
			if err := validateOperation(path, method, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateOperation(path, method string, value any) error {
	operation, _ := value.(map[string]any)
	if operation == nil {
		return fmt.Errorf("openapi: operation %s %s invalid payload", method, path)
	}
	if _, ok := operation["operationId"].(string); !ok {
		return fmt.Errorf("openapi: operation %s %s missing operationId", method, path)
	}
	body, _ := operation["requestBody"].(map[string]any)
	if body == nil {
		return fmt.Errorf("openapi: operation %s %s missing requestBody", method, path)
	}
	if content, _ := body["content"].(map[string]any); len(content) == 0 {
		return fmt.Errorf("openapi: operation %s %s requestBody missing content", method, path)
	}
	if _, ok := operation["responses"].(map[string]any); !ok {
		return fmt.Errorf("openapi: operation %s %s missing responses", method, path)
	}
	return nil
}
