// Package http provides the JSON analytics API.
//
// This file implements the parsing and validation of query parameters,
// path values and JSON request bodies shared by the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"famfin/internal/core"
)

const (
	// maxWindowMonths bounds the months query parameter.
	maxWindowMonths = 120
	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 64 << 10
	maxIDLength  = 64
)

// paramError reports a malformed request parameter. It maps to 400.
type paramError struct {
	param string
	msg   string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.param, e.msg)
}

func badParam(param, format string, args ...any) error {
	return &paramError{param: param, msg: fmt.Sprintf(format, args...)}
}

// queryInt reads an optional integer query parameter. Absent or blank values
// yield def; anything else must parse.
func queryInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badParam(key, "%q is not a number", v)
	}
	return n, nil
}

// ParseWindow builds the trailing analysis window from the months parameter.
func ParseWindow(query url.Values, now time.Time, defaultMonths int) (core.Window, error) {
	months, err := queryInt(query, "months", defaultMonths)
	if err != nil {
		return core.Window{}, err
	}
	if months < 1 || months > maxWindowMonths {
		return core.Window{}, badParam("months", "must be between 1 and %d", maxWindowMonths)
	}
	return core.TrailingMonths(now, months)
}

// ParsePeriod reads year and month, defaulting each to now's.
func ParsePeriod(query url.Values, now time.Time) (core.Period, error) {
	current := core.PeriodOf(now)
	year, err := queryInt(query, "year", current.Year)
	if err != nil {
		return core.Period{}, err
	}
	month, err := queryInt(query, "month", current.Month)
	if err != nil {
		return core.Period{}, err
	}
	p := core.Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return core.Period{}, badParam("period", "%v", err)
	}
	return p, nil
}

// ParseSplit reads the optional forecast split. Zero selects the default.
func ParseSplit(query url.Values) (int, error) {
	split, err := queryInt(query, "split", 0)
	if err != nil {
		return 0, err
	}
	if split < 0 {
		return 0, badParam("split", "cannot be negative")
	}
	return split, nil
}

// PathID returns a validated identifier path value.
func PathID(r *http.Request, name string) (string, error) {
	id := sanitizeInput(r.PathValue(name))
	if id == "" {
		return "", badParam(name, "is required")
	}
	if len(id) > maxIDLength {
		return "", badParam(name, "longer than %d characters", maxIDLength)
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return "", badParam(name, "contains invalid characters")
		}
	}
	return id, nil
}

// DecodeJSON strictly decodes a bounded JSON body into dst. An empty body
// leaves dst untouched.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return badParam("content type", "expected application/json, got %q", ct)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badParam("body", "larger than %d bytes", maxBodyBytes)
		}
		return badParam("body", "%v", err)
	}
	if dec.More() {
		return badParam("body", "unexpected data after JSON object")
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
