// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package netchan

import (
	"bytes"
	"testing"
)

func TestUnreliableRoundTrip(t *testing.T) {
	sender, receiver := New(), New()
	pkt, err := sender.Outgoing([]byte("hello"))
	if err != nil {
		t.Fatalf("Outgoing: %v", err)
	}
	msg, ok, err := receiver.Accept(pkt)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !ok || msg.Reliable {
		t.Fatalf("expected an unreliable message, got ok=%v reliable=%v", ok, msg.Reliable)
	}
	if !bytes.Equal(msg.Data, []byte("hello")) {
		t.Fatalf("Data = %q, want %q", msg.Data, "hello")
	}
}

func TestUnreliableDropsStale(t *testing.T) {
	sender, receiver := New(), New()
	first, _ := sender.Outgoing([]byte("one"))
	second, _ := sender.Outgoing([]byte("two"))
	if _, ok, _ := receiver.Accept(second); !ok {
		t.Fatal("expected the newer packet to be accepted")
	}
	if _, ok, _ := receiver.Accept(first); ok {
		t.Fatal("expected the older, out-of-order packet to be dropped as stale")
	}
}

func TestReliableFragmentReassembly(t *testing.T) {
	sender, receiver := New(), New()
	payload := bytes.Repeat([]byte("abcdefgh"), 300) // 2400 bytes, spans 3 datagrams.
	if err := sender.QueueReliable(payload); err != nil {
		t.Fatalf("QueueReliable: %v", err)
	}

	var got Incoming
	for i := 0; i < 10; i++ {
		if !sender.HasOutstandingReliable() {
			t.Fatalf("sender should still have an outstanding reliable payload at step %d", i)
		}
		pkt, err := sender.Outgoing(nil)
		if err != nil {
			t.Fatalf("Outgoing: %v", err)
		}
		if len(pkt) > MaxDatagram {
			t.Fatalf("fragment %d exceeds MaxDatagram: %d", i, len(pkt))
		}
		msg, ok, err := receiver.Accept(pkt)
		if err != nil {
			t.Fatalf("Accept: %v", err)
		}
		if ok {
			got = msg
			break
		}
	}
	if !got.Reliable {
		t.Fatal("expected a reassembled reliable message")
	}
	if !bytes.Equal(got.Data, payload) {
		t.Fatalf("reassembled %d bytes, want %d", len(got.Data), len(payload))
	}
}

func TestReliableAckClearsOutstanding(t *testing.T) {
	sender, receiver := New(), New()
	if err := sender.QueueReliable([]byte("ping")); err != nil {
		t.Fatalf("QueueReliable: %v", err)
	}
	pkt, _ := sender.Outgoing(nil)
	if _, ok, err := receiver.Accept(pkt); err != nil || !ok {
		t.Fatalf("Accept: ok=%v err=%v", ok, err)
	}

	ackPkt, err := receiver.Outgoing(nil)
	if err != nil {
		t.Fatalf("Outgoing (ack): %v", err)
	}
	if ackPkt == nil {
		t.Fatal("expected an ack-bearing packet even with no payload to send")
	}
	if _, _, err := sender.Accept(ackPkt); err != nil {
		t.Fatalf("Accept (ack): %v", err)
	}
	if sender.HasOutstandingReliable() {
		t.Fatal("sender's reliable payload should be cleared once acked")
	}
}

func TestOutOfBandChallengeRoundTrip(t *testing.T) {
	pkt := BuildOutOfBand("getchallenge")
	if !IsOutOfBand(pkt) {
		t.Fatal("expected IsOutOfBand to recognize the sentinel")
	}
	req, err := ParseOutOfBand(pkt)
	if err != nil {
		t.Fatalf("ParseOutOfBand: %v", err)
	}
	if req.Kind != "getchallenge" {
		t.Fatalf("Kind = %q, want getchallenge", req.Kind)
	}

	challenge := Challenge(42)
	req2, err := ParseOutOfBand(challenge)
	if err != nil {
		t.Fatalf("ParseOutOfBand: %v", err)
	}
	n, err := ParseChallenge(req2)
	if err != nil {
		t.Fatalf("ParseChallenge: %v", err)
	}
	if n != 42 {
		t.Fatalf("challenge = %d, want 42", n)
	}
}
