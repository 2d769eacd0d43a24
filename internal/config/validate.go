package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate validates the configuration and returns an error if invalid
func Validate(config *Config) error {
	if err := validateSection("api", &config.API); err != nil {
		return err
	}

	if err := validateSection("bot", &config.Bot); err != nil {
		return err
	}

	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}

	if err := validateSection("gateway", &config.Gateway); err != nil {
		return err
	}

	if err := validateSection("ssh", &config.SSH); err != nil {
		return err
	}

	if err := validateSection("session", &config.Session); err != nil {
		return err
	}

	return nil
}

// validateSection runs the struct tag rules of one config section and turns
// the first failure into a readable message
func validateSection(name string, section interface{}) error {
	err := validate.Struct(section)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%s config validation failed: %s", name, describeFieldError(fe))
	}
	return fmt.Errorf("%s config validation failed: %w", name, err)
}

func describeFieldError(fe validator.FieldError) string {
	field := toSnakeCase(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got: %v", field, fe.Value())
	case "hostname":
		return fmt.Sprintf("%s must be a bare host name, got: %v", field, fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be positive, got: %v", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("invalid %s: %v (valid: %s)", field, fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s check", field, fe.Tag())
	}
}

// validateLogConfig validates log configuration
func validateLogConfig(config *LogConfig) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	level := strings.ToLower(config.Level)
	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error, fatal, panic)", config.Level)
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}

	format := strings.ToLower(config.Format)
	if !validFormats[format] {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", config.Format)
	}

	return nil
}

// toSnakeCase maps a Go field name such as BaseURL to its config key base_url
func toSnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
		}
		if isUpper {
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
