package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/foodstand/guestkit/internal/model"
)

const maxBodyBytes = 1 << 20

// respondWithData sends a success envelope carrying data
func respondWithData(w http.ResponseWriter, statusCode int, data any) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		raw = b
	}
	writeEnvelope(w, statusCode, model.Envelope{Success: true, Data: raw})
}

// respondWithError sends an error envelope
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	writeEnvelope(w, statusCode, model.Envelope{Success: false, Message: message})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, env model.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(env)
}

// decodeJSON decodes the request body into v, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
