// Package httputil holds the small response and request helpers shared by
// the HTTP handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// WriteJSON writes data as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

func WriteJSONOK(w http.ResponseWriter, data any) { WriteJSON(w, http.StatusOK, data) }

// WriteJSONError writes an ErrorResponse carrying msg.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Status: status})
}

func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func BadRequest(w http.ResponseWriter, msg string) { WriteJSONError(w, http.StatusBadRequest, msg) }
func NotFound(w http.ResponseWriter, msg string)   { WriteJSONError(w, http.StatusNotFound, msg) }

func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, msg)
}

func ServiceUnavailable(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusServiceUnavailable, msg)
}

// RequireGet writes a 405 and returns false unless r is a GET or HEAD.
func RequireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		MethodNotAllowed(w)
		return false
	}
	return true
}

// QueryInt reads an integer query parameter. A missing parameter yields
// def; a value that does not parse or lies outside [min, max] is an error.
func QueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("invalid '%s' parameter: want an integer in [%d, %d]", name, min, max)
	}
	return v, nil
}
