package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/medscribe/internal/common"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// CodeTokenExpired is the detail code the server uses for an expired access
// token.
const CodeTokenExpired = "token_expired"

// GenericMessage is shown when a failure body carries nothing readable.
const GenericMessage = "Request failed."

// DetailKind tells which shape an error body had.
type DetailKind int

const (
	// DetailRaw: the body was not JSON or had no usable detail.
	DetailRaw DetailKind = iota
	// DetailStructured: {"detail": {"code": ..., "message": ...}}
	DetailStructured
	// DetailText: {"detail": "..."}
	DetailText
)

func (k DetailKind) String() string {
	switch k {
	case DetailStructured:
		return "structured"
	case DetailText:
		return "text"
	}
	return "raw"
}

// APIError is a non-2xx response. Kind records which body shape was found.
// Code is set for structured details, and for text details that can be
// classified (a text mentioning "no speech" becomes common.ErrorCodeNoSpeech).
type APIError struct {
	StatusCode int
	Kind       DetailKind
	Code       string
	Message    string
	Raw        []byte

	sentinel error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.UserMessage())
}

// Unwrap exposes the sentinel that matches the status code, if any.
func (e *APIError) Unwrap() error { return e.sentinel }

// UserMessage is the server's message, or GenericMessage.
func (e *APIError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return GenericMessage
}

// Terminal reports whether resubmitting the same content cannot succeed.
func (e *APIError) Terminal() bool {
	return e.Code == common.ErrorCodeNoSpeech
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type structuredDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseErrorBody decodes a failure body into an APIError. It never fails:
// bodies that match neither known shape come back as DetailRaw.
func ParseErrorBody(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Kind: DetailRaw, Raw: body}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 || string(eb.Detail) == "null" {
		return e
	}

	var text string
	if err := json.Unmarshal(eb.Detail, &text); err == nil {
		e.Kind = DetailText
		e.Message = text
		if strings.Contains(strings.ToLower(text), "no speech") {
			e.Code = common.ErrorCodeNoSpeech
		}
		return e
	}

	var sd structuredDetail
	if err := json.Unmarshal(eb.Detail, &sd); err == nil && (sd.Code != "" || sd.Message != "") {
		e.Kind = DetailStructured
		e.Code = sd.Code
		e.Message = sd.Message
	}
	return e
}

// mapError turns a failed response into an *APIError carrying the sentinel
// that callers match with errors.Is.
func mapError(status int, body []byte) error {
	e := ParseErrorBody(status, body)
	switch {
	case status == http.StatusUnauthorized && e.Code == CodeTokenExpired:
		e.sentinel = common.ErrTokenExpired
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.sentinel = common.ErrUnauthorized
	case status == http.StatusNotFound:
		e.sentinel = common.ErrNotFound
	case status == http.StatusConflict:
		e.sentinel = common.ErrAlreadyExists
	case status == http.StatusBadRequest:
		e.sentinel = common.ErrInvalidInput
	case status >= http.StatusInternalServerError:
		e.sentinel = ErrUnavailable
	}
	return e
}
