// Package analysis turns a submitted form into exactly one grading call and maps
// its outcome to a FormState the UI can show.
package analysis

import (
	"context"
	"net/url"
	"strings"
	"time"

	apperrors "areca-grader/api/internal/errors"
	"areca-grader/api/internal/grading"
	"areca-grader/api/internal/llm"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/metrics"
)

const (
	FieldPhotoDataURI = "photoDataUri"

	MsgInvalidImage = "Please upload a valid image."
	MsgUnknownError = "An unknown error occurred."

	dataImagePrefix = "data:image/"
)

// FormState carries either Result or Error, never both.
type FormState struct {
	Result *grading.Result `json:"result"`
	Error  *string         `json:"error"`
}

type QualityState struct {
	Result *grading.Quality `json:"result"`
	Error  *string          `json:"error"`
}

type Grader interface {
	AnalyzeGrade(ctx context.Context, in grading.Input) (grading.Result, error)
	AssessQuality(ctx context.Context, in grading.Input) (grading.Quality, error)
}

type Coordinator struct {
	grader Grader
}

func New(g Grader) *Coordinator {
	return &Coordinator{grader: g}
}

// GetAnalysis validates data and runs the grade variant once. prev is not consulted;
// every submission starts from a clean state.
func (c *Coordinator) GetAnalysis(ctx context.Context, _ FormState, data url.Values) FormState {
	res, errMsg := submit(ctx, c, grading.GradeVariant.Name, data, c.grader.AnalyzeGrade)
	return FormState{Result: res, Error: errMsg}
}

func (c *Coordinator) GetQuality(ctx context.Context, data url.Values) QualityState {
	res, errMsg := submit(ctx, c, grading.QualityVariant.Name, data, c.grader.AssessQuality)
	return QualityState{Result: res, Error: errMsg}
}

func submit[T any](
	ctx context.Context,
	c *Coordinator,
	variant string,
	data url.Values,
	call func(context.Context, grading.Input) (T, error),
) (*T, *string) {
	uri := data.Get(FieldPhotoDataURI)
	if uri == "" || !strings.HasPrefix(uri, dataImagePrefix) {
		metrics.AnalysesTotal.WithLabelValues(variant, "rejected").Inc()
		logger.WithError(apperrors.NewInputRejectedError(MsgInvalidImage, nil)).
			WithField("variant", variant).
			Debug("submission rejected")
		return nil, strPtr(MsgInvalidImage)
	}

	start := time.Now()
	out, err := call(ctx, grading.Input{PhotoDataURI: uri})
	metrics.AnalysisDurationSeconds.WithLabelValues(variant, c.engineName()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(variant, "failed").Inc()
		logger.WithError(apperrors.NewModelError("grading flow failed", err)).
			WithField("variant", variant).
			WithField("engine", c.engineName()).
			Error("analysis failed")
		return nil, strPtr(FailureMessage(err))
	}

	metrics.AnalysesTotal.WithLabelValues(variant, "ok").Inc()
	return &out, nil
}

// FailureMessage is the single user-facing string for a failed flow call.
func FailureMessage(err error) string {
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(apperrors.UserMessage(err))
	}
	if msg == "" {
		msg = MsgUnknownError
	}
	return "Failed to analyze the image. " + strings.TrimSuffix(msg, ".") + ". Please try again."
}

func (c *Coordinator) engineName() string {
	if e, ok := c.grader.(interface{ Engine() llm.Engine }); ok && e.Engine() != nil {
		return e.Engine().Name()
	}
	return "unknown"
}

func strPtr(s string) *string { return &s }
