package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Param is one top-level argument of a tool.
type Param struct {
	Name     string
	Type     schema.DataType
	Desc     string
	Enum     []string
	Required bool
}

// Spec declares a tool once for every provider format and validates the
// arguments a model sends for it.
type Spec struct {
	Name   string
	Desc   string
	Params []Param
}

func (s Spec) ToolInfo() *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(s.Params))
	for _, p := range s.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     p.Type,
			Desc:     p.Desc,
			Enum:     p.Enum,
			Required: p.Required,
		}
	}
	return &schema.ToolInfo{
		Name:        s.Name,
		Desc:        s.Desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// JSONSchema renders the parameters as a JSON Schema object.
func (s Spec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Params))
	required := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]any{"type": string(p.Type), "description": p.Desc}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Declaration is the function declaration form used by realtime clients.
func (s Spec) Declaration() map[string]any {
	return map[string]any{
		"name":        s.Name,
		"description": s.Desc,
		"parameters":  s.JSONSchema(),
	}
}

// Args are validated tool arguments.
type Args map[string]any

// String returns an argument as trimmed text.
func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Validate parses argsJSON and checks it against the declared parameters:
// required values present, types matching and enum values allowed.
// Undeclared keys are dropped.
func (s Spec) Validate(argsJSON string) (Args, error) {
	raw := map[string]any{}
	if strings.TrimSpace(argsJSON) != "" {
		if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
			return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
		}
	}

	args := make(Args, len(s.Params))
	for _, p := range s.Params {
		v, ok := raw[p.Name]
		if !ok || v == nil || v == "" {
			if p.Required {
				return nil, fmt.Errorf("missing required argument %q", p.Name)
			}
			continue
		}
		v, err := coerce(p, v)
		if err != nil {
			return nil, err
		}
		if len(p.Enum) > 0 && !contains(p.Enum, fmt.Sprint(v)) {
			return nil, fmt.Errorf("argument %q must be one of %s", p.Name, strings.Join(p.Enum, ", "))
		}
		args[p.Name] = v
	}
	return args, nil
}

func coerce(p Param, v any) (any, error) {
	switch p.Type {
	case schema.Number, schema.Integer:
		switch n := v.(type) {
		case float64:
			return n, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, fmt.Errorf("argument %q must be a number", p.Name)
			}
			return f, nil
		}
		return nil, fmt.Errorf("argument %q must be a number", p.Name)
	case schema.Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("argument %q must be a boolean", p.Name)
	default:
		switch t := v.(type) {
		case string:
			return t, nil
		case float64:
			// models sometimes send phone numbers unquoted
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(t), nil
		}
		return nil, fmt.Errorf("argument %q must be a string", p.Name)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
