package api

import (
	"net/http"
	"strconv"
)

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Problem is an error response before the request id is attached.
type Problem struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

// Write renders p in the error envelope, tagged with the request id of r.
func Write(w http.ResponseWriter, r *http.Request, p Problem) {
	WriteJSON(w, p.Status, ErrorResponse{Error: APIError{
		Code:      p.Code,
		Message:   p.Message,
		Details:   p.Details,
		RequestID: RequestID(r.Context()),
	}})
}

func BadRequest(w http.ResponseWriter, r *http.Request, code, message string, details map[string]any) {
	Write(w, r, Problem{Status: http.StatusBadRequest, Code: code, Message: message, Details: details})
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	Write(w, r, Problem{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "authentication required"})
}

func Forbidden(w http.ResponseWriter, r *http.Request, code, message string) {
	Write(w, r, Problem{Status: http.StatusForbidden, Code: code, Message: message})
}

func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Write(w, r, Problem{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message})
}

func Conflict(w http.ResponseWriter, r *http.Request, code, message string, details map[string]any) {
	Write(w, r, Problem{Status: http.StatusConflict, Code: code, Message: message, Details: details})
}

// RateLimited also sets Retry-After, in whole seconds.
func RateLimited(w http.ResponseWriter, r *http.Request, retryAfterSec int) {
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	Write(w, r, Problem{Status: http.StatusTooManyRequests, Code: "RATE_LIMITED", Message: "too many requests"})
}

func Unavailable(w http.ResponseWriter, r *http.Request, message string) {
	Write(w, r, Problem{Status: http.StatusServiceUnavailable, Code: "UNAVAILABLE", Message: message})
}

// Internal never exposes the cause.
func Internal(w http.ResponseWriter, r *http.Request) {
	Write(w, r, Problem{Status: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal server error"})
}
