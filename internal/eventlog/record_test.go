package eventlog

import (
	"bytes"
	"strings"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	header := []byte("header-bytes")
	payload := []byte(`{"type":"post.created"}`)
	enc := EncodeRecord(header, payload)
	dec, ok := DecodeRecord(enc)
	if !ok {
		t.Fatalf("decode failed")
	}
	if !bytes.Equal(dec.Header, header) || !bytes.Equal(dec.Payload, payload) {
		t.Fatalf("round trip mismatch")
	}
}

func TestRecordRoundTripCompressed(t *testing.T) {
	header := []byte("h")
	// compressible payload well above the threshold
	payload := []byte(strings.Repeat(`{"field":"value"},`, 200))
	enc := EncodeRecord(header, payload)
	if len(enc) >= len(payload) {
		t.Fatalf("expected stored record smaller than payload: %d >= %d", len(enc), len(payload))
	}
	dec, ok := DecodeRecord(enc)
	if !ok {
		t.Fatalf("decode failed")
	}
	if !bytes.Equal(dec.Payload, payload) {
		t.Fatalf("compressed round trip mismatch")
	}
}

func TestRecordRejectsCorruption(t *testing.T) {
	enc := EncodeRecord([]byte("h"), []byte("payload"))
	enc[len(enc)-1] ^= 0xFF
	if _, ok := DecodeRecord(enc); ok {
		t.Fatalf("expected crc failure")
	}
}

func TestRecordRejectsTruncation(t *testing.T) {
	enc := EncodeRecord([]byte("header"), []byte("payload"))
	for _, n := range []int{0, 1, 3, len(enc) / 2} {
		if _, ok := DecodeRecord(enc[:n]); ok {
			t.Fatalf("expected failure at %d bytes", n)
		}
	}
}
