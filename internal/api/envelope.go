package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/libraryhub/library-server/internal/errors"
	"github.com/libraryhub/library-server/internal/http/response"
)

// EnvelopeVersion identifies the response envelope layout. Clients check it
// before parsing.
const EnvelopeVersion = response.Version

// APIEnvelope wraps every successful response.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// APIErrorEnvelope wraps every error response.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// messenger is implemented by bodies that carry a success message next to their data.
type messenger interface {
	envelope() (data any, message string)
}

// Messaged pairs a response body with a human-readable success message.
type Messaged[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func (m Messaged[T]) envelope() (any, string) {
	return m.Data, m.Message
}

// withMessage returns data wrapped with a success message.
func withMessage[T any](data T, message string) Messaged[T] {
	return Messaged[T]{Data: data, Message: message}
}

// messageOnly is the body of operations that return no data.
func messageOnly(message string) Messaged[any] {
	return Messaged[any]{Message: message}
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in
// APIEnvelope or APIErrorEnvelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	switch body := v.(type) {
	case APIEnvelope, *APIEnvelope, APIErrorEnvelope, *APIErrorEnvelope:
		return v, nil
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case *domainerrors.Error:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   string(body.Code),
			Message: body.Message,
			Details: body.Details,
		}, nil
	case error:
		code, _ := strconv.Atoi(status)
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   string(response.CodeForStatus(code)),
			Message: body.Error(),
		}, nil
	case messenger:
		data, message := body.envelope()
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: true,
			Data:    data,
			Message: message,
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
