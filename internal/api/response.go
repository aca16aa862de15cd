package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeAdminRequired        = "ADMIN_REQUIRED"
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeTooLarge             = "TOO_LARGE"
	CodeUpstream             = "UPSTREAM_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already sent
	_ = json.NewEncoder(w).Encode(Response{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Error: &Error{Code: code, Message: message}})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, CodeBadRequest, message)
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, CodeNotFound, message)
}

func conflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, CodeConflict, message)
}

func adminRequired(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, CodeAdminRequired, "admin mode required")
}

func confirmationRequired(w http.ResponseWriter) {
	writeError(w, http.StatusPreconditionFailed, CodeConfirmationRequired, "add confirm=true to delete")
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}

// decodeJSON reads a JSON request body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
