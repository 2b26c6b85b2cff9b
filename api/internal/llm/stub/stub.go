package stub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"areca-grader/api/internal/llm"
)

// Engine is a deterministic, no-network engine for local runs and CI.
// It answers every schema with valid JSON derived from a hash of the image.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string     { return "stub" }
func (e *Engine) GetModel() string { return "stub" }

func (e *Engine) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(req.Name), req.Image...))
	short := hex.EncodeToString(sum[:4])

	var numeric []string
	out := make(map[string]any, len(req.Schema.Fields))
	for _, f := range req.Schema.Fields {
		switch f.Type {
		case llm.TypeNumber:
			numeric = append(numeric, f.Name)
		default:
			out[f.Name] = stringValue(f.Name, short, sum[0])
		}
	}
	// numeric fields split 100 so percentages look plausible
	remaining := 100
	for i, name := range numeric {
		v := remaining
		if i < len(numeric)-1 {
			v = int(sum[i+1]) % (remaining + 1)
		}
		out[name] = float64(v)
		remaining -= v
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func stringValue(field, short string, seed byte) string {
	switch field {
	case "grade":
		return []string{"A", "B", "C"}[int(seed)%3]
	case "gradingReason":
		return fmt.Sprintf("Stubbed grading for image %s.", short)
	default:
		return fmt.Sprintf("stub %s %s", field, short)
	}
}
