package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/libraryhub/library-server/internal/errors"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{"success response", "200", map[string]string{"key": "value"}},
		{"created response", "201", map[string]string{"id": "123"}},
		{"no content response", "204", nil},
		{"messaged response", "200", withMessage([]string{"a"}, "done")},
		{"bad request error", "400", errors.New("invalid input")},
		{"api error", "409", &APIError{Code: "DUPLICATE_ISBN", Message: "exists"}},
		{"domain error", "422", domainerrors.ErrOutOfStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(raw, &envelope))
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
			assert.Contains(t, envelope, "success")
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"name": "1984"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok, "expected APIEnvelope, got %T", result)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Message)
}

func TestEnvelopeTransformer_MessagedResponse(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "201", withMessage(map[string]int{"stock": 3}, "Book created successfully"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.True(t, envelope.Success)
	assert.Equal(t, map[string]int{"stock": 3}, envelope.Data)
	assert.Equal(t, "Book created successfully", envelope.Message)
}

func TestEnvelopeTransformer_MessageOnlyOmitsData(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "200", messageOnly("Book deleted successfully"))
	require.NoError(t, err)

	raw, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"success":true,"message":"Book deleted successfully"}`, string(raw))
}

func TestEnvelopeTransformer_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      string
		input       error
		wantCode    string
		wantMessage string
		wantDetails any
	}{
		{
			name:        "api error keeps code and details",
			status:      "409",
			input:       &APIError{Code: "HAS_ACTIVE_BORROWS", Message: "cannot delete", Details: map[string]int{"borrowed": 2}},
			wantCode:    "HAS_ACTIVE_BORROWS",
			wantMessage: "cannot delete",
			wantDetails: map[string]int{"borrowed": 2},
		},
		{
			name:        "domain error",
			status:      "400",
			input:       domainerrors.MissingFields("bookId"),
			wantCode:    "MISSING_FIELDS",
			wantMessage: "missing required fields",
			wantDetails: []string{"bookId"},
		},
		{
			name:        "plain error takes code from status",
			status:      "404",
			input:       errors.New("resource not found"),
			wantCode:    "NOT_FOUND",
			wantMessage: "resource not found",
		},
		{
			name:        "unparseable status",
			status:      "",
			input:       errors.New("boom"),
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			envelope, ok := result.(APIErrorEnvelope)
			require.True(t, ok, "expected APIErrorEnvelope, got %T", result)
			assert.False(t, envelope.Success)
			assert.Equal(t, tt.wantCode, envelope.Error)
			assert.Equal(t, tt.wantMessage, envelope.Message)
			assert.Equal(t, tt.wantDetails, envelope.Details)
		})
	}
}

func TestEnvelopeTransformer_PassesThroughEnvelopes(t *testing.T) {
	in := APIEnvelope{Version: EnvelopeVersion, Success: true, Data: "x"}

	result, err := EnvelopeTransformer(nil, "200", in)
	require.NoError(t, err)
	assert.Equal(t, in, result)
}
