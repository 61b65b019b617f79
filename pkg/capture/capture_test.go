// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/monsoon/pkg/midea"
	"github.com/Thermoquad/monsoon/pkg/transport"
)

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)
	w.now = func() time.Time { return time.Unix(1700000000, 5) }

	query, err := midea.Encode(midea.NewStatusRequest(), 42)
	if err != nil {
		t.Fatal(err)
	}
	w.Tap(transport.Outbound, query)
	w.Tap(transport.Inbound, []byte{0xDE, 0xAD})

	if w.Count() != 2 {
		t.Errorf("Count() = %d, want 2", w.Count())
	}

	records, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if records[0].Direction != transport.Outbound || !bytes.Equal(records[0].Frame, query) {
		t.Errorf("record 0 = %+v", records[0])
	}
	if !records[0].At().Equal(time.Unix(1700000000, 5)) {
		t.Errorf("At() = %v", records[0].At())
	}
	if records[1].Direction != transport.Inbound {
		t.Errorf("record 1 direction = %v, want rx", records[1].Direction)
	}

	if out := records[0].Format(); !strings.Contains(out, "QUERY") || !strings.Contains(out, "device=42") {
		t.Errorf("Format() = %q", out)
	}
	if out := records[1].Format(); !strings.Contains(out, "undecodable") || !strings.Contains(out, "DE AD") {
		t.Errorf("Format() of garbage = %q", out)
	}
}

func TestReader_Empty(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestReader_Corrupt(t *testing.T) {
	if _, err := ReadAll(bytes.NewReader([]byte{0xFF, 0x00, 0x13})); err == nil {
		t.Error("ReadAll() of corrupt data should fail")
	}
}

func TestCreateAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.cbor")

	for i := 0; i < 2; i++ {
		w, err := Create(path, nil)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		w.Tap(transport.Outbound, []byte{byte(i)})
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		w.Close()
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 2 || records[1].Frame[0] != 1 {
		t.Errorf("records = %+v", records)
	}
}

func TestWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				w.Tap(transport.Inbound, []byte{1, 2, 3})
			}
		}()
	}
	wg.Wait()

	records, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 200 {
		t.Errorf("got %d records, want 200", len(records))
	}
}
