package handle

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"areca-grader/api/internal/analysis"
	"areca-grader/api/internal/capture"
	apperrors "areca-grader/api/internal/errors"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/render"
)

func (h *Handle) Index(c *gin.Context) {
	h.page(c, http.StatusOK, render.PageData{Preview: h.capture.Load(c.Request.Context())})
}

// Upload accepts the multipart field "file". A rejected file re-renders the page
// with the previous preview and the local error.
func (h *Handle) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.uploadFailed(c, h.capture.RejectTooLarge())
			return
		}
		h.uploadFailed(c, apperrors.NewValidationError("Please select a valid image file.", err))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.uploadFailed(c, apperrors.NewValidationError("Could not read the selected file.", err))
		return
	}
	defer f.Close()

	_, err = h.capture.AcceptFile(c.Request.Context(), capture.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        f,
	})
	if err != nil {
		h.uploadFailed(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handle) uploadFailed(c *gin.Context, err error) {
	logger.WithError(err).WithField("request_id", c.GetString("request_id")).Info("upload rejected")
	h.page(c, apperrors.GetStatusCode(err), render.PageData{
		Preview:    h.capture.Preview(),
		LocalError: apperrors.UserMessage(err),
	})
}

func (h *Handle) Clear(c *gin.Context) {
	h.capture.Clear(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

// Analyze submits the hidden photoDataUri field. Both outcomes render with 200;
// the error is part of the page.
func (h *Handle) Analyze(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		h.page(c, http.StatusBadRequest, render.PageData{
			Preview:     h.capture.Preview(),
			ServerError: analysis.MsgInvalidImage,
		})
		return
	}

	ctx, cancel := h.deadline(c)
	defer cancel()

	state := h.coord.GetAnalysis(ctx, analysis.FormState{}, c.Request.PostForm)

	d := render.PageData{Preview: h.capture.Preview(), Result: state.Result}
	if state.Error != nil {
		d.ServerError = *state.Error
	}
	if d.Preview == "" {
		if uri := c.Request.PostForm.Get(analysis.FieldPhotoDataURI); strings.HasPrefix(uri, "data:image/") {
			d.Preview = uri
		}
	}
	h.page(c, http.StatusOK, d)
}

func (h *Handle) page(c *gin.Context, code int, d render.PageData) {
	d.MaxUploadMB = h.capture.MaxBytes() >> 20
	c.Status(code)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := render.Page(c.Writer, d); err != nil {
		logger.WithError(apperrors.NewInternalError("render page", err)).Error("page render failed")
	}
}
