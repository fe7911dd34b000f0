// Package wire implements the length-prefixed JSON frame codec (spec §4.1,
// C1) and the message envelopes the Aggregator protocol exchanges (spec §3).
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameLength bounds a single frame's payload size. Frames claiming a
// larger length are rejected before any allocation, per spec §4.1.
const MaxFrameLength = 16 * 1024 * 1024 // 16 MiB

// ErrFrameTooLarge is returned when a length prefix exceeds MaxFrameLength.
var ErrFrameTooLarge = fmt.Errorf("wire: frame exceeds max length of %d bytes", MaxFrameLength)

// WriteFrame writes a 4-byte big-endian length prefix followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameLength {
		return ErrFrameTooLarge
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. Short reads on either the
// prefix or the payload are reported as errors, never silently truncated
// or treated as a clean EOF (spec §4.1, P1).
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wire: read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxFrameLength {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wire: read payload: %w", err)
	}
	return payload, nil
}

// EncodeFrame JSON-marshals v and frames it.
func EncodeFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal payload: %w", err)
	}
	return WriteFrame(w, payload)
}

// DecodeFrame reads one frame and JSON-unmarshals it into v.
func DecodeFrame(r io.Reader, v any) error {
	payload, err := ReadFrame(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: unmarshal payload: %w", err)
	}
	return nil
}
