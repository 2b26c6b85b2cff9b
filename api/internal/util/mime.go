package util

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotDataURL = errors.New("not a data URL")

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DataURLMIME returns <mime> from data:<mime>;base64,<payload>, or "" when s is not a data URL.
func DataURLMIME(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return ""
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return ""
	}
	meta := s[len("data:"):idx]
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		meta = meta[:semi]
	}
	return strings.TrimSpace(meta)
}

// DecodeDataURL splits data:<mime>;base64,<payload> and decodes the payload.
// Standard base64 is tried first, then URL-safe.
func DecodeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return nil, "", ErrNotDataURL
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return nil, "", ErrNotDataURL
	}
	mime := DataURLMIME(s)
	payload := s[idx+1:]

	if b, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return b, mime, nil
	} else if b2, err2 := base64.URLEncoding.DecodeString(payload); err2 == nil {
		return b2, mime, nil
	} else {
		return nil, "", err
	}
}

// PickMIME prefers the explicit MIME, then the data URL hint, then sniffs the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if len(data) > 0 {
		m, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
		return m
	}
	return "image/jpeg"
}
