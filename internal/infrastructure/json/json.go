package json

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the only shape an error ever takes on the wire. The text is a
// fixed string; details stay in the logs.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody carries an informational outcome such as "disconnected".
type MessageBody struct {
	Message string `json:"message"`
}

func Write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}

func WriteBadRequestError(w http.ResponseWriter, msg string) {
	WriteError(w, http.StatusBadRequest, msg)
}

func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	Write(w, status, MessageBody{Message: msg})
}

const maxBodyBytes = 1 << 20

// Read decodes the request body into dst, rejecting unknown fields and
// bodies over 1MB.
func Read(w http.ResponseWriter, r *http.Request, dst any) error {
	return ReadLimited(w, r, dst, maxBodyBytes)
}

func ReadLimited(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(dst)
}
