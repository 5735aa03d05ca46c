package catalog

import (
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mweide/calagent/internal/schedtools"
)

// validateArgs checks a call's arguments against the tool's input schema:
// every required property must be present, no unknown properties are
// accepted, and each value must match its declared JSON type. Tool handlers
// can then read arguments without re-checking shape.
func validateArgs(schema mcp.ToolInputSchema, args map[string]any) error {
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"missing required argument %q", name)
		}
	}

	for name, value := range args {
		prop, ok := schema.Properties[name]
		if !ok {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"unknown argument %q", name)
		}
		propMap, ok := prop.(map[string]any)
		if !ok {
			continue
		}
		wantType, ok := propMap["type"].(string)
		if !ok {
			continue
		}
		if err := checkType(name, wantType, value); err != nil {
			return err
		}
	}

	return nil
}

// checkType verifies a single argument against a JSON schema primitive type.
// JSON numbers decode to float64, so "integer" additionally requires a whole
// value.
func checkType(name, wantType string, value any) error {
	switch wantType {
	case "string":
		if _, ok := value.(string); !ok {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"argument %q must be a string", name)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"argument %q must be a boolean", name)
		}
	case "number":
		if !isNumber(value) {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"argument %q must be a number", name)
		}
	case "integer":
		f, ok := asFloat(value)
		if !ok || f != math.Trunc(f) {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"argument %q must be an integer", name)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"argument %q must be an object", name)
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return schedtools.Errorf(schedtools.KindSchemaError,
				"argument %q must be an array", name)
		}
	}
	return nil
}

func isNumber(value any) bool {
	_, ok := asFloat(value)
	return ok
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// intArg reads an already validated integer argument, falling back to def
// when absent.
func intArg(args map[string]any, name string, def int) int {
	v, ok := args[name]
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return int(f)
}

// stringArg reads an already validated string argument, falling back to def
// when absent.
func stringArg(args map[string]any, name, def string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return def
}
