package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"areca-grader/api/internal/llm"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/util"
)

var (
	ErrInvalidInput   = errors.New("photoDataUri is not a base64 data URI")
	ErrSchemaMismatch = errors.New("model output does not match the output schema")
)

type Flow struct {
	engine    llm.Engine
	promptDir string
}

// New returns a Flow over engine. Prompts found in promptDir as <variant>.prompt.txt
// replace the built-in ones; an empty promptDir disables overrides.
func New(engine llm.Engine, promptDir string) *Flow {
	return &Flow{engine: engine, promptDir: promptDir}
}

func (f *Flow) Engine() llm.Engine { return f.engine }

func (f *Flow) AnalyzeGrade(ctx context.Context, in Input) (Result, error) {
	return Run(ctx, f, GradeVariant, in)
}

func (f *Flow) AssessQuality(ctx context.Context, in Input) (Quality, error) {
	return Run(ctx, f, QualityVariant, in)
}

// Run performs one model round trip for v. The output is returned only when every
// schema field is present with the declared type.
func Run[T any](ctx context.Context, f *Flow, v Variant[T], in Input) (T, error) {
	var zero T

	img, mime, err := util.DecodeDataURL(in.PhotoDataURI)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	prompt := v.Prompt
	if override, ok, err := util.LoadPromptOverride(f.promptDir, v.Name); err != nil {
		logger.WithError(err).WithField("variant", v.Name).Warn("prompt override unreadable, using built-in prompt")
	} else if ok {
		prompt = override
	}

	raw, err := f.engine.Generate(ctx, llm.Request{
		Name:   v.Name,
		Prompt: prompt,
		Image:  img,
		MIME:   mime,
		Schema: v.Schema,
	})
	if err != nil {
		return zero, err
	}

	if err := validateOutput(raw, v.Schema); err != nil {
		logger.WithError(err).WithField("variant", v.Name).WithField("raw", util.Truncate(raw, 512)).Debug("model output rejected")
		return zero, err
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return out, nil
}

func validateOutput(raw string, s llm.Schema) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	for _, field := range s.Fields {
		val, ok := obj[field.Name]
		val = bytes.TrimSpace(val)
		if !ok || len(val) == 0 || bytes.Equal(val, []byte("null")) {
			return fmt.Errorf("%w: missing field %q", ErrSchemaMismatch, field.Name)
		}
		switch field.Type {
		case llm.TypeString:
			var str string
			if err := json.Unmarshal(val, &str); err != nil {
				return fmt.Errorf("%w: field %q is not a string", ErrSchemaMismatch, field.Name)
			}
		case llm.TypeNumber:
			var n float64
			if err := json.Unmarshal(val, &n); err != nil {
				return fmt.Errorf("%w: field %q is not a number", ErrSchemaMismatch, field.Name)
			}
		}
	}
	return nil
}
