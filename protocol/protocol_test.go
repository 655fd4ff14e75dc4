package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Kind: KindMove, CommandID: 12345}

	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)

	got, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if got != h {
		t.Fatalf("header mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderEncoding(t *testing.T) {
	// Big-endian layout is part of the wire contract.
	buf := make([]byte, HeaderSize)
	PutHeader(buf, Header{Kind: 1, CommandID: 0x01020304})

	want := []byte{0, 0, 0, 1, 1, 2, 3, 4}
	if !bytes.Equal(buf, want) {
		t.Fatalf("wire bytes mismatch: got %x, want %x", buf, want)
	}
}

func TestParseHeaderShortBuffer(t *testing.T) {
	_, err := ParseHeader([]byte{0, 1, 2})
	if err == nil {
		t.Fatal("expected error for short header, got nil")
	}

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %T: %v", err, err)
	}
}

func TestConnectRequestEncode(t *testing.T) {
	req := ConnectRequest{Version: 3, UDPPort: 54321}

	buf := req.Encode()
	if len(buf) != ConnectRequestSize {
		t.Fatalf("request size mismatch: got %d, want %d", len(buf), ConnectRequestSize)
	}

	want := []byte{0, 3, 0xd4, 0x31} // 54321 = 0xd431
	if !bytes.Equal(buf, want) {
		t.Fatalf("wire bytes mismatch: got %x, want %x", buf, want)
	}
}

func TestParseConnectResponse(t *testing.T) {
	resp, err := ParseConnectResponse([]byte{0, 1, 0, 2})
	if err != nil {
		t.Fatalf("ParseConnectResponse failed: %v", err)
	}
	if resp.Status != ConnectIncompatibleVersion {
		t.Fatalf("status mismatch: got %d, want %d", resp.Status, ConnectIncompatibleVersion)
	}
	if resp.Version != 2 {
		t.Fatalf("version mismatch: got %d, want 2", resp.Version)
	}

	if _, err := ParseConnectResponse([]byte{0, 1}); err == nil {
		t.Fatal("expected error for truncated connect response, got nil")
	}
}

func TestDescriptorSizesMatchConnectLayout(t *testing.T) {
	// Connect reuses one layout across all three sub-protocols; the
	// handshake in package client depends on that.
	for _, d := range []Descriptor{Connect, GripperConnect, VacuumConnect} {
		if d.RequestSize != ConnectRequestSize {
			t.Errorf("%s: request size %d, want %d", d, d.RequestSize, ConnectRequestSize)
		}
		if d.ResponseSize != ConnectResponseSize {
			t.Errorf("%s: response size %d, want %d", d, d.ResponseSize, ConnectResponseSize)
		}
	}
}

func TestVersionMismatchErrorCarriesBothVersions(t *testing.T) {
	err := error(&VersionMismatchError{Peer: 2, Expected: 3})

	var vErr *VersionMismatchError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected VersionMismatchError, got %T", err)
	}
	if vErr.Peer != 2 || vErr.Expected != 3 {
		t.Fatalf("got (peer=%d, expected=%d), want (2, 3)", vErr.Peer, vErr.Expected)
	}
}
