package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Category groups failures by who has to act on them.
type Category string

const (
	// CategoryInput covers missing or unusable media supplied by the caller.
	CategoryInput Category = "input"
	// CategoryDependency covers missing tools, models, or bad configuration.
	CategoryDependency Category = "dependency"
	// CategoryExternal covers timeouts and transient failures of outside services.
	CategoryExternal Category = "external"
	// CategoryContract covers integration bugs: invalid arguments and unclassified errors.
	CategoryContract Category = "contract"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the category persisted alongside failed runs.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryContract
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return CategoryInput
	case errors.Is(err, ErrExternalTool), errors.Is(err, ErrConfiguration):
		return CategoryDependency
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransient):
		return CategoryExternal
	default:
		return CategoryContract
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
