// Package manifest declares options in an HCL file instead of Go code.
//
//	program = "greet"
//
//	option "name" {
//	  type        = "string"
//	  env         = "GREET_NAME"
//	  short       = "n"
//	  required    = true
//	  description = "Who to greet"
//	  rule        = "len(value) >= 3"
//	}
//
// The block label is the long flag unless long, env or short is set.
package manifest

import (
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Manifest is a decoded option file.
type Manifest struct {
	Program string
	Options []OptionSpec
}

// OptionSpec is one decoded option block.
type OptionSpec struct {
	Name        string
	Type        string
	Env         string
	Short       rune
	Long        string
	Required    bool
	Default     hcl.Expression
	Description string
	Rule        string
	Engine      string
	Range       hcl.Range
}

type hclFile struct {
	Program string       `hcl:"program,optional"`
	Options []*hclOption `hcl:"option,block"`
}

type hclOption struct {
	Name        string         `hcl:"name,label"`
	Type        string         `hcl:"type,optional"`
	Env         string         `hcl:"env,optional"`
	Short       string         `hcl:"short,optional"`
	Long        string         `hcl:"long,optional"`
	Required    bool           `hcl:"required,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Description string         `hcl:"description,optional"`
	Rule        string         `hcl:"rule,optional"`
	Engine      string         `hcl:"engine,optional"`
	Body        hcl.Body       `hcl:",body"`
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("manifest: failed to parse %s: %w", path, diags)
	}
	return decode(file, path)
}

// Parse parses src as a manifest. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("manifest: failed to parse %s: %w", filename, diags)
	}
	return decode(file, filename)
}

func decode(file *hcl.File, filename string) (*Manifest, error) {
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("manifest: failed to decode %s: %w", filename, diags)
	}

	m := &Manifest{Program: parsed.Program}
	seen := map[string]hcl.Range{}
	var diags hcl.Diagnostics
	for _, block := range parsed.Options {
		if prev, dup := seen[block.Name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate option definition",
				Detail:   fmt.Sprintf("An option named '%s' was already defined at %s.", block.Name, prev),
				Subject:  blockRange(block).Ptr(),
			})
			continue
		}
		seen[block.Name] = blockRange(block)

		spec, specDiags := newOptionSpec(block)
		diags = append(diags, specDiags...)
		if !specDiags.HasErrors() {
			m.Options = append(m.Options, spec)
		}
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("manifest: invalid options in %s: %w", filename, diags)
	}
	return m, nil
}

func newOptionSpec(block *hclOption) (OptionSpec, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	spec := OptionSpec{
		Name:        block.Name,
		Type:        block.Type,
		Env:         block.Env,
		Long:        block.Long,
		Required:    block.Required,
		Default:     block.Default,
		Description: block.Description,
		Rule:        block.Rule,
		Engine:      block.Engine,
		Range:       blockRange(block),
	}
	if spec.Type == "" {
		spec.Type = "string"
	}
	if _, ok := builders[spec.Type]; !ok {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported option type",
			Detail:   fmt.Sprintf("Option '%s' has type %q; supported types are %s.", block.Name, spec.Type, supportedTypes()),
			Subject:  spec.Range.Ptr(),
		})
	}
	if block.Short != "" {
		r, size := utf8.DecodeRuneInString(block.Short)
		if size != len(block.Short) || (r == utf8.RuneError && size == 1) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid short flag",
				Detail:   fmt.Sprintf("Option '%s' short flag must be a single character, got %q.", block.Name, block.Short),
				Subject:  spec.Range.Ptr(),
			})
		}
		spec.Short = r
	}
	if spec.Long == "" && spec.Env == "" && spec.Short == 0 {
		spec.Long = block.Name
	}
	switch spec.Engine {
	case "", EngineExpr, EngineCEL, EngineJS:
	default:
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported rule engine",
			Detail:   fmt.Sprintf("Option '%s' uses engine %q; use %q, %q or %q.", block.Name, spec.Engine, EngineExpr, EngineCEL, EngineJS),
			Subject:  spec.Range.Ptr(),
		})
	}
	return spec, diags
}

func blockRange(block *hclOption) hcl.Range {
	if block.Body == nil {
		return hcl.Range{}
	}
	return block.Body.MissingItemRange()
}
