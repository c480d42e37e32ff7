package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Results *int   `json:"results,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondData wraps a single document as {"status":"success","data":{"data":doc}}.
func RespondData(w http.ResponseWriter, doc any, statusCode int) {
	RespondJSON(w, Envelope{
		Status: "success",
		Data:   map[string]any{"data": doc},
	}, statusCode)
}

// RespondList wraps a page of documents with the result count.
func RespondList[T any](w http.ResponseWriter, docs []T) {
	if docs == nil {
		docs = []T{}
	}
	n := len(docs)
	RespondJSON(w, Envelope{
		Status:  "success",
		Results: &n,
		Data:    map[string]any{"data": docs},
	}, http.StatusOK)
}

// RespondMessage answers with a plain success message.
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, Envelope{Status: "success", Message: message}, statusCode)
}

// RespondNoContent answers 204 with an empty body.
func RespondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
