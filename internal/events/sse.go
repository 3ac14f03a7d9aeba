package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// SSESink adapts an Emitter onto a single HTTP response as Server-Sent
// Events. One sink serves exactly one in-flight mission, matching the
// streaming endpoint's per-connection contract: a client opens the
// connection, submits a mission, and watches its own deliberation unfold.
type SSESink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSESink prepares w for SSE framing and returns a sink that writes to
// it. Returns false if the response writer cannot be flushed incrementally.
func NewSSESink(w http.ResponseWriter) (*SSESink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSESink{w: w, flusher: flusher}, true
}

// Emit implements Emitter by writing e as one SSE frame and flushing it
// immediately, preserving the Senate's stage ordering on the wire.
func (s *SSESink) Emit(e Event) {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		data = []byte(`{"error":"payload encoding failed"}`)
	}
	s.w.Write(formatSSE(string(e.Kind), string(data)))
	s.flusher.Flush()
}

// formatSSE formats a notification as a Server-Sent Events message. Per the
// SSE spec, each line in a multi-line data field must be prefixed with
// "data: " to avoid desynchronizing the client parser.
func formatSSE(eventType, data string) []byte {
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(eventType)
	buf.WriteByte('\n')
	for _, line := range strings.Split(data, "\n") {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
