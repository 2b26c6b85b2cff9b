package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"areca-grader/api/internal/llm"
)

func TestToGenaiSchema(t *testing.T) {
	s := llm.Schema{
		Description: "grade",
		Fields: []llm.Field{
			{Name: "grade", Type: llm.TypeString, Description: "letter"},
			{Name: "damagedPercentage", Type: llm.TypeNumber, Description: "percent"},
		},
	}

	gs := toGenaiSchema(s)
	assert.Equal(t, genai.TypeObject, gs.Type)
	assert.Equal(t, []string{"grade", "damagedPercentage"}, gs.Required)
	require.Contains(t, gs.Properties, "grade")
	assert.Equal(t, genai.TypeString, gs.Properties["grade"].Type)
	assert.Equal(t, genai.TypeNumber, gs.Properties["damagedPercentage"].Type)
	assert.Equal(t, "percent", gs.Properties["damagedPercentage"].Description)
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}, genai.Text(`{"grade":"A"}`)}}},
		},
	}
	assert.Equal(t, `{"grade":"A"}`, firstText(resp))
}

func TestGenerateRequiresKey(t *testing.T) {
	e := New("  ", "gemini-2.5-flash")
	_, err := e.Generate(context.Background(), llm.Request{Name: "grade"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, "gemini-2.5-flash", e.GetModel())
}
