package api

import (
	"encoding/json"
	"errors"
	"net/http"

	wferr "loan-workflow/internal/common/errors"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Reasons  []string               `json:"reasons,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func statusFor(code wferr.ErrorCode) int {
	switch code {
	case wferr.ErrCodeValidationFailed, wferr.ErrCodeSubmissionBlocked, wferr.ErrCodeIncorrectOTP:
		return http.StatusBadRequest
	case wferr.ErrCodeNotFound:
		return http.StatusNotFound
	case wferr.ErrCodeConflict:
		return http.StatusConflict
	case wferr.ErrCodeInvalidTransition, wferr.ErrCodeVerificationFailed, wferr.ErrCodeVerificationExpired:
		return http.StatusUnprocessableEntity
	case wferr.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case wferr.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case wferr.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var we *wferr.WorkflowError
	if !errors.As(err, &we) {
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    "INTERNAL",
			Message: "internal error",
		})
		return
	}
	writeJSON(w, statusFor(we.Code), errorBody{
		Code:     string(we.Code),
		Message:  we.Message,
		Details:  we.Details,
		Reasons:  we.Reasons,
		Metadata: we.Metadata,
	})
}
