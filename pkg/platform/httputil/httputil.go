// Package httputil centralizes JSON response writing and domain error
// translation so every handler emits the same envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "kitclaim/pkg/domain-errors"
)

// statusByCode fixes the HTTP status for every domain error code. Claim
// outcomes that terminate a request without a server fault map to 400; a lost
// race on the token path maps to 409 so clients can distinguish it.
var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:            http.StatusBadRequest,
	dErrors.CodeInvalidInput:          http.StatusBadRequest,
	dErrors.CodeInvalidFormat:         http.StatusBadRequest,
	dErrors.CodeAlreadyClaimed:        http.StatusBadRequest,
	dErrors.CodeAlreadyClaimedBySelf:  http.StatusBadRequest,
	dErrors.CodeRejected:              http.StatusBadRequest,
	dErrors.CodeNotClaimable:          http.StatusBadRequest,
	dErrors.CodeBatchTooLarge:         http.StatusBadRequest,
	dErrors.CodeUnauthorized:          http.StatusUnauthorized,
	dErrors.CodeForbidden:             http.StatusForbidden,
	dErrors.CodeNotFound:              http.StatusNotFound,
	dErrors.CodeConflict:              http.StatusConflict,
	dErrors.CodeAlreadyClaimedByOther: http.StatusConflict,
	dErrors.CodeInternal:              http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code to its HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard error envelope.
// Internal errors omit the description so store detail never reaches callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = dErrors.MessageOf(err)
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}
