package transport

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"armlink/protocol"
)

func TestSendRequestAssignsIncreasingIDs(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	var last uint32
	for i := 0; i < 3; i++ {
		id, err := ch.SendRequest(protocol.StopMove, nil)
		if err != nil {
			t.Fatal(err)
		}
		if id <= last {
			t.Fatalf("command id %d not greater than previous %d", id, last)
		}
		last = id

		h, _ := peer.readRequest(t, protocol.StopMove)
		if h.Kind != protocol.StopMove.Kind {
			t.Fatalf("kind %d on the wire, want %d", h.Kind, protocol.StopMove.Kind)
		}
		if h.CommandID != id {
			t.Fatalf("id %d on the wire, want %d", h.CommandID, id)
		}
	}
}

func TestSendRequestRejectsWrongPayloadSize(t *testing.T) {
	_, ch := newTestPeer(t, testOptions())

	_, err := ch.SendRequest(protocol.Move, make([]byte, 3))
	var perr *protocol.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError for wrong payload size, got %v", err)
	}
}

// Replies answered strictly in send order come back to the matching waiter,
// payload for payload.
func TestReceiveResponseInOrder(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	const n = 5
	ids := make([]uint32, n)
	for i := 0; i < n; i++ {
		id, err := ch.SendRequest(protocol.Move, make([]byte, protocol.Move.RequestSize))
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id

		h, _ := peer.readRequest(t, protocol.Move)
		payload := make([]byte, protocol.Move.ResponseSize)
		binary.BigEndian.PutUint16(payload, uint16(h.CommandID))
		peer.writeReply(t, protocol.Move.Kind, h.CommandID, payload)
	}

	for _, id := range ids {
		payload, err := ch.ReceiveResponse(protocol.Move, id)
		if err != nil {
			t.Fatal(err)
		}
		if got := binary.BigEndian.Uint16(payload); got != uint16(id) {
			t.Fatalf("reply payload for id %d carries %d", id, got)
		}
	}
}

// A mismatched frame at the front of the stream is never consumed by a
// waiter expecting a different (kind, id) pair.
func TestMismatchedFrameIsNotConsumed(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	id1, err := ch.SendRequest(protocol.StopMove, nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := ch.SendRequest(protocol.Move, make([]byte, protocol.Move.RequestSize))
	if err != nil {
		t.Fatal(err)
	}
	peer.readRequest(t, protocol.StopMove)
	peer.readRequest(t, protocol.Move)

	// Reply to the second request first: its frame sits at the front.
	peer.writeReply(t, protocol.Move.Kind, id2, []byte{0, 2})
	time.Sleep(50 * time.Millisecond)

	// The waiter for id1 must not consume id2's frame.
	if _, ok, err := ch.TryReceiveResponse(protocol.StopMove, id1); err != nil || ok {
		t.Fatalf("waiter for id1 consumed a foreign frame: ok=%v err=%v", ok, err)
	}

	// id2's waiter finds its frame untouched.
	payload, ok, err := ch.TryReceiveResponse(protocol.Move, id2)
	if err != nil || !ok {
		t.Fatalf("reply for id2 lost: ok=%v err=%v", ok, err)
	}
	if payload[1] != 2 {
		t.Fatalf("unexpected payload %v", payload)
	}

	// Now id1's reply arrives and its waiter gets it.
	peer.writeReply(t, protocol.StopMove.Kind, id1, []byte{0, 1})
	got, err := ch.ReceiveResponse(protocol.StopMove, id1)
	if err != nil {
		t.Fatal(err)
	}
	if got[1] != 1 {
		t.Fatalf("unexpected payload %v", got)
	}
}

// Any bit pattern of valid size survives the frame round trip untouched.
func TestResponsePayloadIntegrity(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	id, err := ch.SendRequest(protocol.Move, make([]byte, protocol.Move.RequestSize))
	if err != nil {
		t.Fatal(err)
	}
	peer.readRequest(t, protocol.Move)

	want := make([]byte, protocol.Move.ResponseSize)
	for i := range want {
		want[i] = byte(i*37 + 11)
	}
	peer.writeReply(t, protocol.Move.Kind, id, want)

	got, err := ch.ReceiveResponse(protocol.Move, id)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("payload byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestTryReceiveResponseNothingBuffered(t *testing.T) {
	_, ch := newTestPeer(t, testOptions())

	if _, ok, err := ch.TryReceiveResponse(protocol.Move, 1); err != nil || ok {
		t.Fatalf("expected 'not yet' on an idle stream, got ok=%v err=%v", ok, err)
	}
}

// Closing the connection while a blocking receive is in flight terminates
// the wait instead of hanging.
func TestReceiveResponseConnectionClosed(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	id, err := ch.SendRequest(protocol.StopMove, nil)
	if err != nil {
		t.Fatal(err)
	}
	peer.readRequest(t, protocol.StopMove)

	result := make(chan error, 1)
	go func() {
		_, err := ch.ReceiveResponse(protocol.StopMove, id)
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	peer.conn.Close()

	select {
	case err := <-result:
		if !errors.Is(err, protocol.ErrConnectionClosed) {
			t.Fatalf("expected ErrConnectionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocking receive did not terminate after peer close")
	}
}

// A pending command-channel wait must not delay telemetry reads, and
// telemetry reads must not delay the wait: the two sides are serialized
// independently.
func TestCommandWaitDoesNotBlockTelemetry(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	id, err := ch.SendRequest(protocol.StopMove, nil)
	if err != nil {
		t.Fatal(err)
	}
	peer.readRequest(t, protocol.StopMove)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := ch.ReceiveResponse(protocol.StopMove, id); err != nil {
			t.Errorf("blocking receive failed: %v", err)
		}
	}()

	// While the command wait spins, a datagram must come through promptly.
	time.Sleep(20 * time.Millisecond)
	peer.sendDatagram(t, ch, make([]byte, 16))

	start := time.Now()
	if _, err := ch.ReceiveDatagram(16); err != nil {
		t.Fatalf("telemetry receive failed during command wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("telemetry receive took %v while a command wait was pending", elapsed)
	}

	peer.writeReply(t, protocol.StopMove.Kind, id, []byte{0, 0})
	wg.Wait()
}

// Concurrent senders never interleave frames: every request arrives whole
// and ids stay unique.
func TestConcurrentSendersKeepFramesIntact(t *testing.T) {
	peer, ch := newTestPeer(t, testOptions())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ch.SendRequest(protocol.Move, make([]byte, protocol.Move.RequestSize)); err != nil {
				t.Errorf("send failed: %v", err)
			}
		}()
	}

	seen := make(map[uint32]bool)
	for i := 0; i < n; i++ {
		h, _ := peer.readRequest(t, protocol.Move)
		if h.Kind != protocol.Move.Kind {
			t.Fatalf("frame %d: kind %d, want %d", i, h.Kind, protocol.Move.Kind)
		}
		if seen[h.CommandID] {
			t.Fatalf("command id %d seen twice", h.CommandID)
		}
		seen[h.CommandID] = true
	}
	wg.Wait()
}
