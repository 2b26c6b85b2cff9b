package llm

type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// Field is one required top-level property of an output object.
type Field struct {
	Name        string
	Type        FieldType
	Description string
}

// Schema describes a flat JSON object whose fields are all required.
// Providers translate it to their own structured-output format.
type Schema struct {
	Description string
	Fields      []Field
}

func (s Schema) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

// JSONSchema renders s as a draft-07 JSON schema object.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]any, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = map[string]any{
			"type":        string(f.Type),
			"description": f.Description,
		}
		required = append(required, f.Name)
	}
	m := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	return m
}
