package client

import (
	"errors"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		kind    DetailKind
		code    string
		message string
	}{
		{
			name:    "structured detail",
			body:    `{"detail":{"code":"no_speech_detected","message":"No speech was detected in the recording."}}`,
			kind:    DetailStructured,
			code:    common.ErrorCodeNoSpeech,
			message: "No speech was detected in the recording.",
		},
		{
			name:    "structured without code",
			body:    `{"detail":{"message":"patient not found"}}`,
			kind:    DetailStructured,
			message: "patient not found",
		},
		{
			name:    "text mentioning no speech",
			body:    `{"detail":"Transcription failed: No speech detected"}`,
			kind:    DetailText,
			code:    common.ErrorCodeNoSpeech,
			message: "Transcription failed: No speech detected",
		},
		{
			name:    "plain text detail",
			body:    `{"detail":"database exploded"}`,
			kind:    DetailText,
			message: "database exploded",
		},
		{name: "html", body: `<html>502 Bad Gateway</html>`, kind: DetailRaw},
		{name: "empty", body: ``, kind: DetailRaw},
		{name: "null detail", body: `{"detail":null}`, kind: DetailRaw},
		{name: "validation array", body: `{"detail":[{"loc":["body","file"],"msg":"field required"}]}`, kind: DetailRaw},
		{name: "empty object", body: `{"detail":{}}`, kind: DetailRaw},
		{name: "no detail key", body: `{"error":"x"}`, kind: DetailRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseErrorBody(http.StatusUnprocessableEntity, []byte(tt.body))
			require.NotNil(t, e)
			assert.Equal(t, tt.kind, e.Kind, e.Kind.String())
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.message, e.Message)
			assert.Equal(t, []byte(tt.body), e.Raw)
		})
	}
}

func TestAPIError_UserMessageAndTerminal(t *testing.T) {
	raw := ParseErrorBody(500, []byte("oops"))
	assert.Equal(t, GenericMessage, raw.UserMessage())
	assert.False(t, raw.Terminal())
	assert.Contains(t, raw.Error(), "500")

	ns := ParseErrorBody(422, []byte(`{"detail":"no speech"}`))
	assert.True(t, ns.Terminal())
}

func TestMapError_Sentinels(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{401, `{"detail":{"code":"token_expired","message":"token expired"}}`, common.ErrTokenExpired},
		{401, `{"detail":"bad credentials"}`, common.ErrUnauthorized},
		{403, ``, common.ErrUnauthorized},
		{404, `{"detail":"nope"}`, common.ErrNotFound},
		{409, ``, common.ErrAlreadyExists},
		{400, ``, common.ErrInvalidInput},
		{503, ``, ErrUnavailable},
	}
	for _, tt := range tests {
		err := mapError(tt.status, []byte(tt.body))
		assert.ErrorIs(t, err, tt.want, "%d %s", tt.status, tt.body)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, tt.status, apiErr.StatusCode)
	}

	var apiErr *APIError
	err := mapError(422, []byte(`{"detail":{"code":"no_speech_detected","message":"m"}}`))
	require.ErrorAs(t, err, &apiErr)
	assert.Nil(t, apiErr.Unwrap())
	assert.Equal(t, common.ErrorCodeNoSpeech, apiErr.Code)
}
