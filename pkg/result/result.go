// Package result provides the uniform return contract of every service
// method: expected business and validation failures become a failed result,
// never an error escaping the service API.
package result

import "github.com/felixzhu97/orderflow/pkg/apperr"

type Of[T any] struct {
	Success      bool   `json:"success"`
	Data         T      `json:"data,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func OK[T any](data T) Of[T] {
	return Of[T]{Success: true, Data: data}
}

func Fail[T any](code apperr.Code, msg string) Of[T] {
	return Of[T]{Success: false, ErrorCode: string(code), ErrorMessage: msg}
}

// FromError converts err into a failed result, collapsing non-application
// errors into a generic INTERNAL_ERROR so no internals leak to callers.
func FromError[T any](err error) Of[T] {
	return Of[T]{
		Success:      false,
		ErrorCode:    string(apperr.CodeOf(err)),
		ErrorMessage: apperr.MessageOf(err),
	}
}
