package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"mailwatch/internal/application"
	"mailwatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the JSON representation of the service status served on
// the root endpoint once authorized.
type StatusResponse struct {
	State         string `json:"state"`
	LastTick      string `json:"last_tick,omitempty"`
	LastTickError string `json:"last_tick_error,omitempty"`
	TickCount     int64  `json:"tick_count"`
	UnreadSeen    int64  `json:"unread_seen"`
	Forwarded     int64  `json:"forwarded"`
	MarkedRead    int64  `json:"marked_read"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Time   string `json:"time"`
}

// toStatusResponse converts an auth state and a counter snapshot to the JSON
// status representation.
func toStatusResponse(state model.AuthState, st application.Status) StatusResponse {
	resp := StatusResponse{
		State:         string(state),
		LastTickError: st.LastTickError,
		TickCount:     st.TickCount,
		UnreadSeen:    st.UnreadSeen,
		Forwarded:     st.Forwarded,
		MarkedRead:    st.MarkedRead,
	}
	if !st.LastTick.IsZero() {
		resp.LastTick = st.LastTick.UTC().Format(time.RFC3339)
	}
	return resp
}
