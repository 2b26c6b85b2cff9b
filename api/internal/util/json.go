package util

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var promptNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// LoadPromptOverride reads <dir>/<name>.prompt.txt. ok=false means no override is configured
// or the file is absent/empty, and the caller should use its built-in prompt.
func LoadPromptOverride(dir, name string) (text string, ok bool, err error) {
	if strings.TrimSpace(dir) == "" {
		return "", false, nil
	}
	if !promptNameRe.MatchString(name) {
		return "", false, fmt.Errorf("invalid prompt name %q", name)
	}
	p := filepath.Join(dir, name+".prompt.txt")
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read prompt %s: %w", p, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}

// FixJSONSchemaStrict brings a schema to the strict form OpenAI expects: every object gets
// type=object, required listing all properties and additionalProperties=false.
func FixJSONSchemaStrict(node any) {
	switch n := node.(type) {
	case map[string]any:
		if props, ok := n["properties"].(map[string]any); ok {
			if _, hasType := n["type"]; !hasType {
				n["type"] = "object"
			}
			if _, has := n["required"]; !has {
				req := make([]any, 0, len(props))
				for k := range props {
					req = append(req, k)
				}
				n["required"] = req
			}
			n["additionalProperties"] = false
			for _, v := range props {
				FixJSONSchemaStrict(v)
			}
		}
		if items, ok := n["items"]; ok {
			switch it := items.(type) {
			case map[string]any:
				FixJSONSchemaStrict(it)
			case []any:
				for _, el := range it {
					FixJSONSchemaStrict(el)
				}
			}
		}
		for _, k := range []string{"oneOf", "anyOf", "allOf"} {
			if arr, ok := n[k].([]any); ok {
				for _, el := range arr {
					FixJSONSchemaStrict(el)
				}
			}
		}
	case []any:
		for _, v := range n {
			FixJSONSchemaStrict(v)
		}
	}
}
