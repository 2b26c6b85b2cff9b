package grading

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"areca-grader/api/internal/llm"
)

const pngURI = "data:image/png;base64,iVBORw0KGgo="

type fakeEngine struct {
	out   string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeEngine) Name() string     { return "fake" }
func (f *fakeEngine) GetModel() string { return "fake-1" }
func (f *fakeEngine) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.out, f.err
}

func TestAnalyzeGrade(t *testing.T) {
	eng := &fakeEngine{out: `{"grade":"A","gradingReason":"uniform color","bestQualityPercentage":70,"worstQualityPercentage":20,"damagedPercentage":10}`}
	flow := New(eng, "")

	got, err := flow.AnalyzeGrade(context.Background(), Input{PhotoDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, Result{
		Grade:                  "A",
		GradingReason:          "uniform color",
		BestQualityPercentage:  70,
		WorstQualityPercentage: 20,
		DamagedPercentage:      10,
	}, got)

	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, "grade", eng.last.Name)
	assert.Equal(t, "image/png", eng.last.MIME)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, eng.last.Image)
	assert.Equal(t, GradeVariant.Schema, eng.last.Schema)
	assert.Contains(t, eng.last.Prompt, "expert in areca nut grading")
}

func TestAnalyzeGradeDoesNotEnforceSum(t *testing.T) {
	eng := &fakeEngine{out: `{"grade":"B","gradingReason":"mixed","bestQualityPercentage":80,"worstQualityPercentage":50,"damagedPercentage":40}`}

	got, err := New(eng, "").AnalyzeGrade(context.Background(), Input{PhotoDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, 170.0, got.BestQualityPercentage+got.WorstQualityPercentage+got.DamagedPercentage)
}

func TestAssessQuality(t *testing.T) {
	eng := &fakeEngine{out: `{"bestQualityPercentage":65,"worstQualityPercentage":35}`}

	got, err := New(eng, "").AssessQuality(context.Background(), Input{PhotoDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, Quality{BestQualityPercentage: 65, WorstQualityPercentage: 35}, got)
	assert.Equal(t, "quality", eng.last.Name)
	assert.Equal(t, QualityVariant.Schema, eng.last.Schema)
}

func TestRunSchemaMismatch(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{name: "not json", out: "Grade A, looks good", want: "output schema"},
		{name: "missing field", out: `{"grade":"A","gradingReason":"x","bestQualityPercentage":1,"worstQualityPercentage":2}`, want: `missing field "damagedPercentage"`},
		{name: "null field", out: `{"grade":null,"gradingReason":"x","bestQualityPercentage":1,"worstQualityPercentage":2,"damagedPercentage":3}`, want: `missing field "grade"`},
		{name: "string percentage", out: `{"grade":"A","gradingReason":"x","bestQualityPercentage":"70%","worstQualityPercentage":2,"damagedPercentage":3}`, want: `"bestQualityPercentage" is not a number`},
		{name: "numeric grade", out: `{"grade":1,"gradingReason":"x","bestQualityPercentage":1,"worstQualityPercentage":2,"damagedPercentage":3}`, want: `"grade" is not a string`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(&fakeEngine{out: tt.out}, "").AnalyzeGrade(context.Background(), Input{PhotoDataURI: pngURI})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaMismatch)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, Result{}, got)
		})
	}
}

func TestRunPropagatesEngineError(t *testing.T) {
	upstream := errors.New("rate limited")
	eng := &fakeEngine{err: upstream}

	_, err := New(eng, "").AnalyzeGrade(context.Background(), Input{PhotoDataURI: pngURI})
	assert.ErrorIs(t, err, upstream)
	assert.Equal(t, 1, eng.calls)
}

func TestRunRejectsInvalidInput(t *testing.T) {
	eng := &fakeEngine{}

	_, err := New(eng, "").AnalyzeGrade(context.Background(), Input{PhotoDataURI: "not-a-data-uri"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, eng.calls)
}

func TestRunUsesPromptOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quality.prompt.txt"), []byte("custom quality prompt"), 0o644))

	eng := &fakeEngine{out: `{"bestQualityPercentage":50,"worstQualityPercentage":50}`}
	flow := New(eng, dir)

	_, err := flow.AssessQuality(context.Background(), Input{PhotoDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, "custom quality prompt", eng.last.Prompt)

	eng.out = `{"grade":"A","gradingReason":"x","bestQualityPercentage":1,"worstQualityPercentage":2,"damagedPercentage":3}`
	_, err = flow.AnalyzeGrade(context.Background(), Input{PhotoDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, gradePrompt, eng.last.Prompt)
}
