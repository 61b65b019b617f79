// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw session traffic as a stream of CBOR records
// and reads it back.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/transport"
	"github.com/fxamacker/cbor/v2"
	"go.uber.org/zap"
)

// Record is one tapped frame: {1: unix nanos, 2: direction, 3: bytes}.
type Record struct {
	Time      int64               `cbor:"1,keyasint"`
	Direction transport.Direction `cbor:"2,keyasint"`
	Frame     []byte              `cbor:"3,keyasint"`
}

// At returns the record timestamp.
func (r Record) At() time.Time { return time.Unix(0, r.Time) }

// Format renders the record and, when the frame decodes, its contents.
func (r Record) Format() string {
	s := fmt.Sprintf("[%s] %s %d bytes\n", r.At().Format("15:04:05.000"), r.Direction, len(r.Frame))
	p, err := midea.DecodePacket(r.Frame)
	if err != nil {
		return s + fmt.Sprintf("  (undecodable: %v)\n  %s\n", err, midea.FormatHex(r.Frame))
	}
	return s + midea.FormatPacket(p)
}

// Writer appends records to a stream. It implements transport.Tap and is
// safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	logger *zap.Logger
	now    func() time.Time
	count  int
}

var _ transport.Tap = (*Writer)(nil)

// NewWriter writes records to w.
func NewWriter(w io.Writer, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{enc: cbor.NewEncoder(w), logger: logger, now: time.Now}
}

// Create opens path for appending and returns a writer that closes it.
func Create(path string, logger *zap.Logger) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	w := NewWriter(f, logger)
	w.closer = f
	return w, nil
}

// Tap records data.
func (w *Writer) Tap(dir transport.Direction, data []byte) {
	if err := w.Write(Record{Time: w.now().UnixNano(), Direction: dir, Frame: data}); err != nil {
		w.logger.Warn("failed to write capture record", zap.Error(err))
	}
}

// Write appends one record.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(r); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying file, if the writer owns one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Reader decodes a record stream.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader reads records from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode capture record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every record in r.
func ReadAll(r io.Reader) ([]Record, error) {
	var out []Record
	reader := NewReader(r)
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
