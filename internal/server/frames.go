// Package server exposes the streaming analysis endpoint and its NDJSON
// framing, plus the history and health endpoints.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/sjson"

	"github.com/reposcope/reposcope/internal/metrics"
	"github.com/reposcope/reposcope/internal/types"
)

// FrameWriter writes newline-delimited JSON frames to a streaming response.
// Each frame is flushed as soon as it is written. Once a terminal frame
// (result or error) has been written, further writes are rejected.
type FrameWriter struct {
	w        io.Writer
	flusher  http.Flusher
	terminal bool
}

// NewFrameWriter wraps a response writer. The flusher may be nil, in which
// case frames are still written but pacing depends on the transport.
func NewFrameWriter(w io.Writer, flusher http.Flusher) *FrameWriter {
	return &FrameWriter{w: w, flusher: flusher}
}

// Terminal reports whether a result or error frame has been written.
func (fw *FrameWriter) Terminal() bool {
	return fw.terminal
}

// WriteProgress emits a progress frame. Progress after the terminal frame is
// dropped silently.
func (fw *FrameWriter) WriteProgress(message string) error {
	if fw.terminal {
		return nil
	}
	frame, err := sjson.SetBytes([]byte(`{"type":"progress"}`), "message", message)
	if err != nil {
		return fmt.Errorf("build progress frame: %w", err)
	}
	return fw.writeFrame(frame, "progress")
}

// WriteResult emits the single result frame and marks the stream terminal.
func (fw *FrameWriter) WriteResult(result *types.AnalysisResult) error {
	if fw.terminal {
		return fmt.Errorf("terminal frame already written")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result payload: %w", err)
	}
	frame, err := sjson.SetRawBytes([]byte(`{"type":"result"}`), "payload", payload)
	if err != nil {
		return fmt.Errorf("build result frame: %w", err)
	}
	fw.terminal = true
	return fw.writeFrame(frame, "result")
}

// WriteError emits the single error frame and marks the stream terminal.
func (fw *FrameWriter) WriteError(message string) error {
	if fw.terminal {
		return fmt.Errorf("terminal frame already written")
	}
	frame, err := sjson.SetBytes([]byte(`{"type":"error"}`), "message", message)
	if err != nil {
		return fmt.Errorf("build error frame: %w", err)
	}
	fw.terminal = true
	return fw.writeFrame(frame, "error")
}

func (fw *FrameWriter) writeFrame(frame []byte, kind string) error {
	if _, err := fw.w.Write(append(frame, '\n')); err != nil {
		return fmt.Errorf("write %s frame: %w", kind, err)
	}
	metrics.FramesWritten.WithLabelValues(kind).Inc()
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	return nil
}
