package llm

import (
	"context"
	"errors"
	"strings"
)

type Engine interface {
	Name() string
	GetModel() string
	// Generate sends one prompt + image and returns the raw JSON text produced under schema.
	Generate(ctx context.Context, req Request) (string, error)
}

type Request struct {
	// Name identifies the prompt (used as the structured-output name by providers that need one).
	Name   string
	Prompt string
	Image  []byte
	MIME   string
	Schema Schema
}

type Engines struct {
	Gemini Engine
	OpenAI Engine
	Stub   Engine
}

var ErrUnknownEngine = errors.New("unknown llm_name; use 'gemini', 'gpt' or 'stub'")

func (e *Engines) GetEngine(llmName string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(llmName)) {
	case "gemini", "":
		eng = e.Gemini
	case "gpt", "openai":
		eng = e.OpenAI
	case "stub":
		eng = e.Stub
	default:
		return nil, ErrUnknownEngine
	}
	if eng == nil {
		return nil, errors.New("engine " + llmName + " is not configured")
	}
	return eng, nil
}
