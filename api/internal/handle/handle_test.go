package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"areca-grader/api/internal/analysis"
	"areca-grader/api/internal/capture"
	"areca-grader/api/internal/grading"
	"areca-grader/api/internal/llm"
	"areca-grader/api/internal/llm/stub"
	"areca-grader/api/internal/metrics"
	"areca-grader/api/internal/store"
)

const pngURI = "data:image/png;base64,iVBORw0KGgo="

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

type failingEngine struct{ calls int }

func (e *failingEngine) Name() string     { return "failing" }
func (e *failingEngine) GetModel() string { return "failing" }
func (e *failingEngine) Generate(context.Context, llm.Request) (string, error) {
	e.calls++
	return "", errors.New("rate limited")
}

type testServer struct {
	router  *gin.Engine
	capture *capture.Capture
	store   *store.Memory
}

func newServer(t *testing.T, engine llm.Engine) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.Register()

	mem := store.NewMemory()
	cp := capture.New(store.NewSlot(mem, store.ImageCacheKey), capture.DefaultMaxBytes)
	coord := analysis.New(grading.New(engine, ""))
	h := New(cp, coord, Options{EngineName: engine.Name()})
	return &testServer{router: h.Router(), capture: cp, store: mem}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, name, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestIndexShowsUploadForm(t *testing.T) {
	s := newServer(t, stub.New())
	w := s.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `action="/upload"`)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestUploadThenClear(t *testing.T) {
	s := newServer(t, stub.New())
	ctx := context.Background()

	w := s.do(uploadRequest(t, "nuts.png", "image/png", pngBytes))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cached, ok, err := s.store.Get(ctx, store.ImageCacheKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(cached, "data:image/png;base64,"))

	w = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), `name="photoDataUri"`)
	assert.Contains(t, w.Body.String(), `action="/analyze"`)

	w = s.do(httptest.NewRequest(http.MethodPost, "/clear", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	_, ok, err = s.store.Get(ctx, store.ImageCacheKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, s.capture.Preview())
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
		want        string
	}{
		{
			name:        "wrong type",
			contentType: "application/pdf",
			data:        []byte("%PDF-1.4"),
			want:        "Please select a valid image file.",
		},
		{
			name:        "too large",
			contentType: "image/jpeg",
			data:        make([]byte, capture.DefaultMaxBytes+1),
			want:        "File size must be less than 5MB.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t, stub.New())
			w := s.do(uploadRequest(t, "upload", tt.contentType, tt.data))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			_, ok, err := s.store.Get(context.Background(), store.ImageCacheKey)
			require.NoError(t, err)
			assert.False(t, ok, "rejected uploads must not be cached")
		})
	}
}

func TestUploadMissingFile(t *testing.T) {
	s := newServer(t, stub.New())
	w := s.do(formRequest("/upload", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please select a valid image file.")
}

func TestAnalyzePage(t *testing.T) {
	t.Run("invalid data uri", func(t *testing.T) {
		s := newServer(t, stub.New())
		w := s.do(formRequest("/analyze", url.Values{"photoDataUri": {"not-a-data-uri"}}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Please upload a valid image.")
	})
	t.Run("result", func(t *testing.T) {
		s := newServer(t, stub.New())
		w := s.do(formRequest("/analyze", url.Values{"photoDataUri": {pngURI}}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Analysis Results")
		assert.Contains(t, w.Body.String(), "Damaged Nuts")
		assert.NotContains(t, w.Body.String(), `role="alert"`)
	})
	t.Run("model failure", func(t *testing.T) {
		s := newServer(t, &failingEngine{})
		w := s.do(formRequest("/analyze", url.Values{"photoDataUri": {pngURI}}))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Failed to analyze the image. rate limited. Please try again.")
	})
}

func TestAPIAnalysis(t *testing.T) {
	t.Run("invalid input", func(t *testing.T) {
		s := newServer(t, stub.New())
		w := s.do(jsonRequest("/api/v1/analysis", `{"photoDataUri":"not-a-data-uri"}`))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"result":null,"error":"Please upload a valid image."}`, w.Body.String())
	})
	t.Run("result", func(t *testing.T) {
		s := newServer(t, stub.New())
		w := s.do(jsonRequest("/api/v1/analysis", `{"photoDataUri":"`+pngURI+`"}`))
		require.Equal(t, http.StatusOK, w.Code)

		var state analysis.FormState
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
		assert.Nil(t, state.Error)
		require.NotNil(t, state.Result)
		assert.NotEmpty(t, state.Result.Grade)
	})
	t.Run("model failure is called once", func(t *testing.T) {
		eng := &failingEngine{}
		s := newServer(t, eng)
		w := s.do(jsonRequest("/api/v1/analysis", `{"photoDataUri":"`+pngURI+`"}`))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"result":null,"error":"Failed to analyze the image. rate limited. Please try again."}`, w.Body.String())
		assert.Equal(t, 1, eng.calls)
	})
	t.Run("bad json", func(t *testing.T) {
		s := newServer(t, stub.New())
		w := s.do(jsonRequest("/api/v1/analysis", `{`))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "validation", resp.Error)
	})
}

func TestAPIQuality(t *testing.T) {
	s := newServer(t, stub.New())
	w := s.do(jsonRequest("/api/v1/quality", `{"photoDataUri":"`+pngURI+`"}`))
	require.Equal(t, http.StatusOK, w.Code)

	var state analysis.QualityState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Nil(t, state.Error)
	require.NotNil(t, state.Result)
	assert.InDelta(t, 100, state.Result.BestQualityPercentage+state.Result.WorstQualityPercentage, 0.001)
}

func TestAPISchema(t *testing.T) {
	s := newServer(t, stub.New())
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/schema", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "input")
	assert.Contains(t, body, "grade")
	assert.Contains(t, body, "quality")
	assert.ElementsMatch(t, []any{"photoDataUri"}, body["input"]["required"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, stub.New())

	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"engine":"stub"`)

	s.do(jsonRequest("/api/v1/analysis", `{"photoDataUri":"nope"}`))
	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "areca_grader_analyses_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newServer(t, stub.New())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "6f1f6f7a-3c1e-4f3a-9a59-0d6c1c2b9e11")

	w := s.do(req)
	assert.Equal(t, "6f1f6f7a-3c1e-4f3a-9a59-0d6c1c2b9e11", w.Header().Get(HeaderRequestID))
}
