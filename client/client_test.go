// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package client

import (
	"testing"

	"github.com/cormac-obrien/richter-sub002/protocol"
)

func connectedClient(t *testing.T) *Client {
	t.Helper()
	c := New()
	c.BeginConnecting()
	err := c.HandleMessage(protocol.ServerInfoMessage{
		ProtocolVersion: 15,
		MaxClients:      4,
		LevelName:       "The Slipgate Complex",
		ModelNames:      []string{"progs/player.mdl", "progs/eyes.mdl"},
		SoundNames:      []string{"weapons/rocket.wav"},
	})
	if err != nil {
		t.Fatalf("ServerInfo: %v", err)
	}
	return c
}

func TestServerInfoEntersConnected(t *testing.T) {
	c := connectedClient(t)
	if c.State != Connected {
		t.Fatalf("state = %v, want Connected", c.State)
	}
	if c.LevelName != "The Slipgate Complex" {
		t.Fatalf("levelname = %q", c.LevelName)
	}
	if idx, ok := c.Precache.ModelIndex("progs/eyes.mdl"); !ok || idx != 2 {
		t.Fatalf("index = %d,%v want 2,true", idx, ok)
	}
}

func TestSignOnSequenceQueuesReplies(t *testing.T) {
	c := connectedClient(t)

	if err := c.HandleMessage(protocol.SignOnNumMessage{Stage: int32(SignOnPrespawn)}); err != nil {
		t.Fatal(err)
	}
	if c.Stage != SignOnPrespawn {
		t.Fatalf("stage = %v, want Prespawn", c.Stage)
	}

	if err := c.HandleMessage(protocol.SignOnNumMessage{Stage: int32(SignOnClientInfo)}); err != nil {
		t.Fatal(err)
	}
	if err := c.HandleMessage(protocol.SignOnNumMessage{Stage: int32(SignOnBegin)}); err != nil {
		t.Fatal(err)
	}
	if c.Stage != SignOnBegin {
		t.Fatalf("stage = %v, want Begin", c.Stage)
	}

	want := []string{"prespawn", "modellist", "soundlist", "begin"}
	if len(c.Outgoing) != len(want) {
		t.Fatalf("outgoing = %v, want %v", c.Outgoing, want)
	}
	for i, w := range want {
		if c.Outgoing[i] != w {
			t.Fatalf("outgoing[%d] = %q, want %q", i, c.Outgoing[i], w)
		}
	}

	// The first FastUpdate after Begin completes sign-on (spec.md §4.5).
	if err := c.HandleMessage(protocol.EntityUpdate{Number: 1, Fields: protocol.UpdateOriginZ, Origin: [3]float32{0, 0, 32}}); err != nil {
		t.Fatal(err)
	}
	if c.Stage != SignOnDone {
		t.Fatalf("stage = %v, want Done", c.Stage)
	}
}

func TestUpdateAppliesAgainstBaselineNotPreviousFrame(t *testing.T) {
	c := connectedClient(t)

	base := protocol.BaselineFields{Origin: [3]float32{10, 20, 30}, Angles: [3]float32{0, 90, 0}, Model: 5}
	if err := c.HandleMessage(protocol.SpawnBaselineMessage{Entity: 1, BaselineFields: base}); err != nil {
		t.Fatal(err)
	}

	// First update moves X only.
	if err := c.HandleMessage(protocol.EntityUpdate{
		Number: 1, Fields: protocol.UpdateOriginX, Origin: [3]float32{100},
	}); err != nil {
		t.Fatal(err)
	}
	e := c.Entities[1]
	if e.Curr.Origin != ([3]float32{100, 20, 30}) {
		t.Fatalf("origin after first update = %v, want {100,20,30}", e.Curr.Origin)
	}

	// Second update moves Z only; X must revert to the *baseline* 10, not
	// stay at the previous frame's 100 (spec.md §4.5, "deltas against
	// this baseline, not the previous frame").
	if err := c.HandleMessage(protocol.EntityUpdate{
		Number: 1, Fields: protocol.UpdateOriginZ, Origin: [3]float32{0, 0, 64},
	}); err != nil {
		t.Fatal(err)
	}
	if e.Curr.Origin != ([3]float32{10, 20, 64}) {
		t.Fatalf("origin after second update = %v, want {10,20,64}", e.Curr.Origin)
	}
}

func TestInterpolateClampsAndLerps(t *testing.T) {
	e := &Entity{}
	e.setBaseline(protocol.BaselineFields{Origin: [3]float32{0, 0, 0}}, 0)
	e.applyUpdate(protocol.EntityUpdate{Fields: protocol.UpdateOriginX, Origin: [3]float32{100}}, 1.0)
	// e.Prev is still the baseline at t=0, e.Curr is {100,0,0} at t=1.

	mid := e.Interpolate(0.5)
	if mid.Origin[0] != 50 {
		t.Fatalf("mid origin.x = %v, want 50", mid.Origin[0])
	}

	past := e.Interpolate(-5)
	if past.Origin[0] != 0 {
		t.Fatalf("clamped-past origin.x = %v, want 0", past.Origin[0])
	}

	future := e.Interpolate(50)
	if future.Origin[0] != 100 {
		t.Fatalf("clamped-future origin.x = %v, want 100", future.Origin[0])
	}
}

func TestInterpolateAngleShortestArc(t *testing.T) {
	e := &Entity{}
	e.setBaseline(protocol.BaselineFields{Angles: [3]float32{0, 350, 0}}, 0)
	e.applyUpdate(protocol.EntityUpdate{Fields: protocol.UpdateAngleY, Angles: [3]float32{0, 10, 0}}, 1.0)

	mid := e.Interpolate(0.5)
	// 350 -> 10 the short way crosses 0/360, landing at 0, not 180.
	if mid.Angles[1] != 0 {
		t.Fatalf("mid yaw = %v, want 0 (shortest arc through 360)", mid.Angles[1])
	}
}

func TestInterpolateNoLerpSnapsToCurr(t *testing.T) {
	e := &Entity{}
	e.setBaseline(protocol.BaselineFields{Origin: [3]float32{0, 0, 0}}, 0)
	e.applyUpdate(protocol.EntityUpdate{
		Fields: protocol.UpdateOriginX | protocol.UpdateNoLerp, Origin: [3]float32{500},
	}, 1.0)

	got := e.Interpolate(0.5) // would otherwise be the halfway point.
	if got.Origin[0] != 500 {
		t.Fatalf("origin.x = %v, want 500 (NoLerp snap)", got.Origin[0])
	}
}

func TestStaticEntitiesAccumulate(t *testing.T) {
	c := connectedClient(t)
	if err := c.HandleMessage(protocol.SpawnStaticMessage{BaselineFields: protocol.BaselineFields{Model: 9}}); err != nil {
		t.Fatal(err)
	}
	if len(c.StaticEntities) != 1 || c.StaticEntities[0].Model != 9 {
		t.Fatalf("static entities = %v", c.StaticEntities)
	}
}

func TestDisconnectResetsState(t *testing.T) {
	c := connectedClient(t)
	c.HandleMessage(protocol.SpawnBaselineMessage{Entity: 1})
	c.Disconnect()
	if c.State != NotConnected {
		t.Fatalf("state = %v, want NotConnected", c.State)
	}
	if len(c.Entities) != 0 {
		t.Fatalf("entities not cleared: %v", c.Entities)
	}
}
