package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"areca-grader/api/internal/llm"
	"areca-grader/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate makes exactly one GenerateContent call; the SDK's own transport defaults apply.
func (e *Engine) Generate(ctx context.Context, req llm.Request) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Schema),
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.Blob{
			MIMEType: util.PickMIME(req.MIME, "", req.Image),
			Data:     req.Image,
		})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", req.Name, err)
	}
	txt := firstText(resp)
	if strings.TrimSpace(txt) == "" {
		return "", fmt.Errorf("gemini %s: empty response", req.Name)
	}
	return util.StripCodeFences(txt), nil
}

func toGenaiSchema(s llm.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	for _, f := range s.Fields {
		t := genai.TypeString
		if f.Type == llm.TypeNumber {
			t = genai.TypeNumber
		}
		props[f.Name] = &genai.Schema{Type: t, Description: f.Description}
	}
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: s.Description,
		Properties:  props,
		Required:    s.FieldNames(),
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
