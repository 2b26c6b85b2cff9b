package gpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"areca-grader/api/internal/llm"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/util"
)

const defaultBaseURL = "https://api.openai.com/v1"

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// vision calls can take a while before the first header arrives
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: defaultBaseURL,
		httpc:   &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, req llm.Request) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}
	mime := util.PickMIME(req.MIME, "", req.Image)
	if len(req.Image) > 0 && !isOpenAIImageMIME(mime) {
		return "", fmt.Errorf("openai %s: unsupported MIME %s (need image/jpeg|png|webp|gif)", req.Name, mime)
	}

	schema := req.Schema.JSONSchema()
	delete(schema, "$schema")
	util.FixJSONSchemaStrict(schema)

	content := []any{map[string]any{"type": "input_text", "text": req.Prompt}}
	if len(req.Image) > 0 {
		content = append(content, map[string]any{
			"type":      "input_image",
			"image_url": util.MakeDataURL(mime, req.Image),
		})
	}

	body := map[string]any{
		"model": e.Model,
		"input": []any{
			map[string]any{
				"type":    "message",
				"role":    "user",
				"content": content,
			},
		},
		"temperature": 0,
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   req.Name,
				"strict": true,
				"schema": schema,
			},
		},
	}
	if strings.Contains(e.Model, "gpt-5") {
		body["temperature"] = 1
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.BaseURL, "/")+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.APIKey)

	start := time.Now()
	resp, err := e.httpc.Do(httpReq)
	logger.WithField("engine", e.Name()).
		WithField("prompt", req.Name).
		WithField("elapsed_ms", time.Since(start).Milliseconds()).
		Debug("openai responses call finished")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai %s %d: %s", req.Name, resp.StatusCode, apiErrorMessage(raw))
	}

	out := util.StripCodeFences(extractResponsesText(raw))
	if out == "" {
		return "", fmt.Errorf("openai %s: empty output; body=%s", req.Name, truncateBytes(raw, 1024))
	}
	return out, nil
}

// extractResponsesText pulls model text out of the Responses API envelope.
// It prefers `output_text`, and otherwise concatenates text segments in output[i].content[j].
func extractResponsesText(raw []byte) string {
	type content struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type output struct {
		Content []content `json:"content"`
	}
	var env struct {
		Output     []output `json:"output"`
		OutputText string   `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var b strings.Builder
	for _, o := range env.Output {
		for _, c := range o.Content {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			if c.Type == "output_text" || c.Type == "text" || c.Type == "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(c.Text)
			}
		}
	}
	return b.String()
}

// apiErrorMessage returns error.message from an OpenAI error body, or the trimmed body.
func apiErrorMessage(raw []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return truncateBytes(bytes.TrimSpace(raw), 512)
}

func truncateBytes(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func isOpenAIImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
