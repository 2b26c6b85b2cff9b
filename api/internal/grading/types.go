package grading

import "areca-grader/api/internal/llm"

// Input is the request to every grading variant.
type Input struct {
	PhotoDataURI string `json:"photoDataUri"`
}

// Result is the output of the full grading variant. The three percentages are
// reported as the model gives them; they are not required to sum to 100.
type Result struct {
	Grade                  string  `json:"grade"`
	GradingReason          string  `json:"gradingReason"`
	BestQualityPercentage  float64 `json:"bestQualityPercentage"`
	WorstQualityPercentage float64 `json:"worstQualityPercentage"`
	DamagedPercentage      float64 `json:"damagedPercentage"`
}

// Quality is the output of the quality-only variant.
type Quality struct {
	BestQualityPercentage  float64 `json:"bestQualityPercentage"`
	WorstQualityPercentage float64 `json:"worstQualityPercentage"`
}

// Variant binds a prompt and an output schema to the Go type the output decodes into.
type Variant[T any] struct {
	Name   string
	Prompt string
	Schema llm.Schema
}
