package stream

import (
	"encoding/json"
	"io"
)

// Sink receives every frame the multiplexer accepts, already ordered.
type Sink interface {
	WriteFrame(frame any) error
}

type flusher interface {
	Flush() error
}

// LineWriter encodes frames as newline-delimited JSON and flushes after each one so the
// client sees tokens as they arrive.
type LineWriter struct {
	w io.Writer
}

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

func (l *LineWriter) WriteFrame(frame any) error {
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if f, ok := l.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Recorder keeps frames in memory.
type Recorder struct {
	Frames []any
}

func (r *Recorder) WriteFrame(frame any) error {
	r.Frames = append(r.Frames, frame)
	return nil
}

// Events returns the recorded data events, skipping annotations.
func (r *Recorder) Events() []Event {
	out := make([]Event, 0, len(r.Frames))
	for _, f := range r.Frames {
		if ev, ok := f.(Event); ok {
			out = append(out, ev)
		}
	}
	return out
}

// Annotations returns the recorded annotation frames.
func (r *Recorder) Annotations() []Annotation {
	var out []Annotation
	for _, f := range r.Frames {
		if a, ok := f.(Annotation); ok {
			out = append(out, a)
		}
	}
	return out
}
