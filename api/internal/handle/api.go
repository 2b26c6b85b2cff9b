package handle

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"areca-grader/api/internal/analysis"
	apperrors "areca-grader/api/internal/errors"
	"areca-grader/api/internal/grading"
	"areca-grader/api/internal/logger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// APIAnalysis takes {"photoDataUri": "..."} and always answers 200 with a FormState
// once the body parses.
func (h *Handle) APIAnalysis(c *gin.Context) {
	data, ok := bindInput(c)
	if !ok {
		return
	}
	ctx, cancel := h.deadline(c)
	defer cancel()
	c.JSON(http.StatusOK, h.coord.GetAnalysis(ctx, analysis.FormState{}, data))
}

func (h *Handle) APIQuality(c *gin.Context) {
	data, ok := bindInput(c)
	if !ok {
		return
	}
	ctx, cancel := h.deadline(c)
	defer cancel()
	c.JSON(http.StatusOK, h.coord.GetQuality(ctx, data))
}

func (h *Handle) APISchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"input":                     grading.InputSchema.JSONSchema(),
		grading.GradeVariant.Name:   grading.GradeVariant.Schema.JSONSchema(),
		grading.QualityVariant.Name: grading.QualityVariant.Schema.JSONSchema(),
	})
}

func bindInput(c *gin.Context) (url.Values, bool) {
	var in grading.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, apperrors.NewValidationError("invalid request format", err))
		return nil, false
	}
	return url.Values{analysis.FieldPhotoDataURI: []string{in.PhotoDataURI}}, true
}

func respondError(c *gin.Context, err *apperrors.AppError) {
	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString("request_id"),
		"status_code": err.StatusCode,
	}).Warn("request failed")

	resp := ErrorResponse{Error: string(err.Type), Message: err.Message}
	c.AbortWithStatusJSON(err.StatusCode, resp)
}
