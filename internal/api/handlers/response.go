package handlers

import (
	"encoding/json"
	"net"
	"net/http"
)

type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, apiResponse{Success: false, Message: message})
}

// clientIP returns the peer address without the port. The RealIP middleware
// has already resolved X-Forwarded-For into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
