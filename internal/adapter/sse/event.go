package sse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// maxLine bounds a single SSE line; one record is far smaller.
const maxLine = 1 << 20

// event is one dispatched Server-Sent Event.
type event struct {
	ID   string
	Name string
	Data []byte
}

// isRecord reports whether the event carries a record. Unnamed events default
// to "message"; heartbeats and any other named events are ignored.
func (e event) isRecord() bool {
	return e.Name == "" || e.Name == "message"
}

// readEvents parses an event stream and calls dispatch for every complete
// event. It returns the reader's error, or nil at EOF.
func readEvents(r io.Reader, dispatch func(event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)

	var (
		cur     event
		data    bytes.Buffer
		hasData bool
	)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if hasData {
				cur.Data = bytes.Clone(data.Bytes())
				if !dispatch(cur) {
					return nil
				}
			}
			cur = event{ID: cur.ID}
			data.Reset()
			hasData = false
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			cur.Name = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "id":
			cur.ID = value
		}
	}
	return scanner.Err()
}
