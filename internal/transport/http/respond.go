package http

import (
	"encoding/json"
	"net/http"

	"github.com/felixzhu97/orderflow/pkg/apperr"
	"github.com/felixzhu97/orderflow/pkg/result"
)

// statusFor maps the taxonomy code of a failed result to an HTTP status.
// Codes not listed are treated as internal failures.
var statusFor = map[string]int{
	string(apperr.CodeValidation):              http.StatusBadRequest,
	string(apperr.CodeCurrencyMismatch):        http.StatusBadRequest,
	string(apperr.CodeNotFound):                http.StatusNotFound,
	string(apperr.CodeUnauthorized):            http.StatusUnauthorized,
	string(apperr.CodeAccountLocked):           http.StatusLocked,
	string(apperr.CodeConflict):                http.StatusConflict,
	string(apperr.CodeConcurrentModification):  http.StatusConflict,
	string(apperr.CodeDuplicateEmail):          http.StatusConflict,
	string(apperr.CodeDuplicateUsername):       http.StatusConflict,
	string(apperr.CodeBusiness):                http.StatusUnprocessableEntity,
	string(apperr.CodeInsufficientStock):       http.StatusUnprocessableEntity,
	string(apperr.CodeInvalidStatusTransition): http.StatusUnprocessableEntity,
	string(apperr.CodeOrderCannotCancel):       http.StatusUnprocessableEntity,
	string(apperr.CodePaymentFailed):           http.StatusPaymentRequired,
}

func writeResult[T any](w http.ResponseWriter, okStatus int, res result.Of[T]) {
	if res.Success {
		writeJSON(w, okStatus, res)
		return
	}
	status, ok := statusFor[res.ErrorCode]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
