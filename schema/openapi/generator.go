package openapi

import (
	"fmt"

	flagenv "github.com/goliatone/go-flagenv"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI 3 document generator for declared
// options. The options object is published as the request body of a single
// operation; each property carries x-env and x-flags extensions naming where
// the value is read from.
func NewGenerator(opts ...GeneratorOption) flagenv.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into a Compose.
func Option(opts ...GeneratorOption) flagenv.ComposeOption {
	return flagenv.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(value any) (flagenv.SchemaDocument, error) {
	var fields []flagenv.FieldDescriptor
	switch v := value.(type) {
	case []flagenv.FieldDescriptor:
		fields = v
	case nil:
	default:
		return flagenv.SchemaDocument{}, fmt.Errorf("openapi: unsupported value %T, want []flagenv.FieldDescriptor", value)
	}

	root, err := buildOptionsGraph(fields, g.config)
	if err != nil {
		return flagenv.SchemaDocument{}, err
	}
	document, err := buildDocument(g.config, root)
	if err != nil {
		return flagenv.SchemaDocument{}, err
	}
	return flagenv.SchemaDocument{
		Format:   flagenv.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}
