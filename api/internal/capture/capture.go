// Package capture validates uploaded images, turns them into data URIs and keeps
// the most recent one in a single cache slot.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	apperrors "areca-grader/api/internal/errors"
	"areca-grader/api/internal/logger"
	"areca-grader/api/internal/metrics"
	"areca-grader/api/internal/store"
	"areca-grader/api/internal/util"
)

const DefaultMaxBytes = 5 * 1024 * 1024

var (
	ErrTooLarge   = errors.New("file too large")
	ErrWrongType  = errors.New("file is not an image")
	ErrUnreadable = errors.New("file could not be read")
)

// File is one uploaded file. Size and ContentType are what the client declared;
// an empty or generic ContentType is sniffed from the bytes.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        io.Reader
}

type Capture struct {
	slot     *store.Slot
	maxBytes int64

	mu      sync.RWMutex
	preview string
}

func New(slot *store.Slot, maxBytes int64) *Capture {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Capture{slot: slot, maxBytes: maxBytes}
}

func (c *Capture) MaxBytes() int64 { return c.maxBytes }

// Preview returns the data URI currently shown to the user, or "".
func (c *Capture) Preview() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.preview
}

// Load reads the cache slot into the preview. Storage errors are logged and ignored.
func (c *Capture) Load(ctx context.Context) string {
	v, ok, err := c.slot.Get(ctx)
	if err != nil {
		storageFailure("get", c.slot.Key(), err)
		return c.Preview()
	}
	if ok && v != "" {
		c.mu.Lock()
		c.preview = v
		c.mu.Unlock()
	}
	return c.Preview()
}

// AcceptFile validates f and returns it as a data URI. A rejected file leaves
// the preview and the cache slot untouched.
func (c *Capture) AcceptFile(ctx context.Context, f File) (string, error) {
	if f.Size > c.maxBytes {
		return "", c.reject("too_large", c.tooLarge())
	}
	declared := baseMIME(f.ContentType)
	if declared == "application/octet-stream" {
		declared = ""
	}
	if declared != "" && !isImage(declared) {
		return "", c.reject("wrong_type", wrongType(declared))
	}

	data, err := io.ReadAll(io.LimitReader(f.Data, c.maxBytes+1))
	if err != nil {
		return "", c.reject("unreadable", apperrors.NewValidationError("Could not read the selected file.", fmt.Errorf("%w: %v", ErrUnreadable, err)))
	}
	if int64(len(data)) > c.maxBytes {
		return "", c.reject("too_large", c.tooLarge())
	}

	mime := declared
	if mime == "" {
		mime = baseMIME(mimetype.Detect(data).String())
		if !isImage(mime) {
			return "", c.reject("wrong_type", wrongType(mime))
		}
	}

	uri := util.MakeDataURL(mime, data)

	c.mu.Lock()
	c.preview = uri
	c.mu.Unlock()

	if err := c.slot.Set(ctx, uri); err != nil {
		storageFailure("set", c.slot.Key(), err)
	}

	logger.WithField("file", f.Name).
		WithField("mime", mime).
		WithField("bytes", len(data)).
		Debug("image accepted")
	return uri, nil
}

// Clear empties the preview and removes the cache slot.
func (c *Capture) Clear(ctx context.Context) {
	c.mu.Lock()
	c.preview = ""
	c.mu.Unlock()

	if err := c.slot.Clear(ctx); err != nil {
		storageFailure("remove", c.slot.Key(), err)
	}
}

// RejectTooLarge reports an upload that was cut off before it reached AcceptFile,
// e.g. by a request body limit.
func (c *Capture) RejectTooLarge() error {
	return c.reject("too_large", c.tooLarge())
}

func (c *Capture) tooLarge() error {
	msg := fmt.Sprintf("File size must be less than %d bytes.", c.maxBytes)
	if c.maxBytes%(1<<20) == 0 {
		msg = fmt.Sprintf("File size must be less than %dMB.", c.maxBytes>>20)
	}
	return apperrors.NewValidationError(msg, ErrTooLarge)
}

func (c *Capture) reject(reason string, err error) error {
	metrics.UploadsRejectedTotal.WithLabelValues(reason).Inc()
	return err
}

func wrongType(mime string) error {
	return apperrors.NewValidationError("Please select a valid image file.", fmt.Errorf("%w: %s", ErrWrongType, mime))
}

func storageFailure(op, key string, err error) {
	metrics.StorageFailuresTotal.WithLabelValues(op).Inc()
	logger.WithError(apperrors.NewStorageError("image cache "+op+" failed", err)).
		WithField("key", key).
		Warn("image cache unavailable")
}

func baseMIME(s string) string {
	s, _, _ = strings.Cut(s, ";")
	return strings.ToLower(strings.TrimSpace(s))
}

func isImage(mime string) bool {
	return strings.HasPrefix(mime, "image/")
}
