package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform JSON body wrapping every API response.
type Envelope struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// WriteData writes the uniform envelope with a success code and optional
// payload.
func WriteData(w http.ResponseWriter, status int, message string, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	body := Envelope{
		Status:  status,
		Code:    "ok",
		Message: sanitize(message, 512),
		Data:    data,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
