package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "

	readBufferSize = 4096
)

// FrameDecoder turns an incrementally-arriving event stream into frames.
// Bytes are buffered until a full "\n"-terminated line is available, so a
// line split across writes is decoded once it completes.
type FrameDecoder struct {
	buf       []byte
	eventType string
	emit      func(Frame)
	received  bool
	closed    bool
}

// NewFrameDecoder creates a decoder that hands every frame to emit, in order
func NewFrameDecoder(emit func(Frame)) *FrameDecoder {
	return &FrameDecoder{emit: emit}
}

// Write appends p to the line buffer and emits a frame for every complete data line
func (d *FrameDecoder) Write(p []byte) (int, error) {
	if d.closed {
		return 0, errors.New("frame decoder is closed")
	}
	if len(p) > 0 {
		d.received = true
	}
	d.buf = append(d.buf, p...)

	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		d.processLine(line)
	}

	return len(p), nil
}

func (d *FrameDecoder) processLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	switch {
	case strings.HasPrefix(line, eventPrefix):
		d.eventType = strings.TrimSpace(line[len(eventPrefix):])
	case strings.HasPrefix(line, dataPrefix):
		// payload is deliberately left untrimmed
		d.emit(Frame{Event: d.eventType, Data: line[len(dataPrefix):]})
	default:
		LogDebug("Ignoring stream line: %q", line)
	}
}

// Close emits the synthetic end frame. It is safe to call more than once;
// only the first call emits. An incomplete trailing line is discarded.
func (d *FrameDecoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if len(d.buf) > 0 {
		LogDebug("Discarding %d byte(s) of incomplete stream line", len(d.buf))
		d.buf = nil
	}
	d.emit(Frame{Event: EventEnd})
	return nil
}

// Received reports whether any bytes have been written
func (d *FrameDecoder) Received() bool {
	return d.received
}

// DecodeStream reads r to completion, emitting frames as lines complete.
//
// A clean end of input emits the synthetic end frame and returns nil. A read
// failure before any byte arrived returns a *TransportError and emits nothing
// further. A failure after partial data still emits the end frame and then
// returns the *TransportError.
func DecodeStream(ctx context.Context, r io.Reader, emit func(Frame)) error {
	dec := NewFrameDecoder(emit)
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return finishWithError(dec, "read", err)
		}

		n, err := r.Read(buf)
		if n > 0 {
			_, _ = dec.Write(buf[:n])
		}
		if err == io.EOF {
			return dec.Close()
		}
		if err != nil {
			return finishWithError(dec, "read", err)
		}
	}
}

func finishWithError(dec *FrameDecoder, op string, err error) error {
	partial := dec.Received()
	if partial {
		_ = dec.Close()
	}
	return &TransportError{Op: op, Partial: partial, Err: err}
}
