package gateway

import (
	"fmt"
	"io"
	"net/http"
)

const (
	// DoneEvent is the terminal event payload sent after the last chunk of a
	// successfully completed stream.
	DoneEvent = "[DONE]"

	// ErrorEventPrefix marks a terminal in-band error event. It is followed by
	// the error detail string and the stream closes without a DoneEvent.
	ErrorEventPrefix = "[ERROR] "
)

// setStreamHeaders prepares the response for Server-Sent Events. The
// X-Accel-Buffering header keeps intermediary proxies from buffering the
// stream.
func setStreamHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// writeDataEvent writes a single SSE data frame. Payloads are written
// verbatim, so a chunk containing newlines spans multiple lines inside the
// frame.
func writeDataEvent(w io.Writer, data string) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// writeErrorEvent writes the terminal error frame for a stream that failed
// after the response status was committed.
func writeErrorEvent(w io.Writer, detail string) error {
	return writeDataEvent(w, ErrorEventPrefix+detail)
}
