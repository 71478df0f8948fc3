package openapi

import (
	"strings"
)

const (
	defaultPath        = "/options"
	defaultMethod      = "post"
	optionsContentType = "application/json"
)

type generatorConfig struct {
	openAPIVersion string
	info           openapiInfo
	method         string
	path           string
	rootComponent  string
	omitSources    bool
	omitDefaults   bool
}

type openapiInfo struct {
	Title       string
	Version     string
	Description string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		openAPIVersion: "3.0.3",
		info: openapiInfo{
			Title:   "Command Options",
			Version: "1.0.0",
		},
		method: defaultMethod,
		path:   defaultPath,
	}
}

// GeneratorOption configures the OpenAPI generator behaviour.
type GeneratorOption func(*generatorConfig)

// WithOpenAPIVersion overrides the OpenAPI version string (default: 3.0.3).
func WithOpenAPIVersion(version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if version == "" {
			return
		}
		cfg.openAPIVersion = version
	}
}

// InfoOption configures optional fields on the OpenAPI info section.
type InfoOption func(*openapiInfo)

// WithDescription describes the program in the info section, typically the
// usage line shown by help.
func WithDescription(description string) InfoOption {
	return func(info *openapiInfo) {
		info.Description = description
	}
}

// WithInfo names the program and its version. Empty strings retain the
// defaults.
func WithInfo(title, version string, opts ...InfoOption) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.info.Title = title
		}
		if version != "" {
			cfg.info.Version = version
		}
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.info)
			}
		}
	}
}

// WithEndpoint moves the options body to another method and path
// (default: POST /options).
func WithEndpoint(method, path string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if method != "" {
			cfg.method = strings.ToLower(method)
		}
		if path != "" {
			cfg.path = path
		}
	}
}

// WithRootComponent publishes the options object under components with the
// provided name and references it from the request body.
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.rootComponent = name
	}
}

// WithoutSources drops the x-env and x-flags extensions from every property.
func WithoutSources() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.omitSources = true
	}
}

// WithoutDefaults leaves declared defaults out of the property schemas.
func WithoutDefaults() GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.omitDefaults = true
	}
}
