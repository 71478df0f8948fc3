package flagenv

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatDescriptors represents the flattened field descriptors.
	SchemaFormatDescriptors SchemaFormat = "descriptors"
	// SchemaFormatOpenAPI represents OpenAPI-compatible JSON Schema documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms the declared options into a schema document.
// Compose passes a []FieldDescriptor; generators may accept other values too.
type SchemaGenerator interface {
	Generate(value any) (SchemaDocument, error)
}

// FieldDescriptor describes one declared option.
type FieldDescriptor struct {
	Path        string   `json:"path"`
	Type        string   `json:"type"`
	Env         string   `json:"env,omitempty"`
	Flags       []string `json:"flags,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Default     any      `json:"default,omitempty"`
	Description string   `json:"description,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based schema generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(value any) (SchemaDocument, error) {
	descriptors, _ := value.([]FieldDescriptor)
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// Describe returns one descriptor per registered option, in registration order.
func (c *Compose) Describe() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(c.options))
	for _, opt := range c.options {
		out = append(out, opt.describe())
	}
	return out
}

// Schema runs the configured SchemaGenerator over the declared options.
func (c *Compose) Schema() (SchemaDocument, error) {
	generator := c.cfg.schemaGenerator
	if generator == nil {
		generator = DefaultSchemaGenerator()
	}
	return generator.Generate(c.Describe())
}
