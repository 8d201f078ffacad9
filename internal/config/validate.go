package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tsreflect/tsreflect/internal/analyzer"
	"github.com/tsreflect/tsreflect/internal/diagnostic"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return analyzer.ValidPattern(fl.Field().String())
	})
	return v
}

// Validate checks the config for logical errors.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, fieldPath(ve)+": "+formatValidationError(ve))
	}
	return errors.New(strings.Join(messages, "; "))
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(ve validator.FieldError) string {
	ns := ve.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "required_if":
		return fmt.Sprintf("required when %s", strings.Replace(ve.Param(), " ", " is ", 1))
	case "min":
		return fmt.Sprintf("must have at least %s entries", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	case "glob":
		return fmt.Sprintf("invalid glob pattern %q", ve.Value())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}

	if err := c.Validate(); err != nil {
		result.Errors = append(result.Errors, strings.Split(err.Error(), "; ")...)
	}

	if c.Marker != "" && !identifierRE.MatchString(c.Marker) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("marker: %q is not an identifier, so no call will ever match it", c.Marker))
	}
	if c.CanonicalImport != "" && !identifierRE.MatchString(c.CanonicalImport) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("canonicalImport: %q is not an identifier", c.CanonicalImport))
	}
	if c.SentinelImport != "" && strings.Contains(c.CanonicalImport, c.SentinelImport) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("canonicalImport: %q contains sentinelImport %q, so renamed imports are renamed again on every build", c.CanonicalImport, c.SentinelImport))
	}

	for _, pattern := range c.Include {
		if !strings.ContainsAny(pattern, "*?[{") && !strings.HasSuffix(pattern, ".ts") && !strings.HasSuffix(pattern, ".tsx") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("include: pattern %q doesn't contain a wildcard or .ts extension; did you mean %q?", pattern, strings.TrimSuffix(pattern, "/")+"/**/*.ts"))
		}
	}

	if c.Output.Dir != "" && c.Output.Mode != ModeSource {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("output.dir: ignored in %q mode", c.Output.Mode))
	}

	return result
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Report adds the result to c as config-invalid diagnostics for file.
func (r *ValidationResult) Report(c *diagnostic.Collector, file string) {
	pos := diagnostic.Position{File: file}
	for _, msg := range r.Errors {
		c.Errorf(diagnostic.CategoryConfigInvalid, pos, "%s", msg)
	}
	for _, msg := range r.Warnings {
		c.Warnf(diagnostic.CategoryConfigInvalid, pos, "%s", msg)
	}
}
