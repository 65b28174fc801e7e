// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package client drives the receiving side of the connection: the
// sign-on state machine, precache population, baseline/delta entity
// application, and time interpolation (spec.md §4.5). It is grounded on
// the teacher's staged, goroutine-driven loader (loader.go) and
// component-manager application struct (app.go), generalized here from
// asset loading to protocol sign-on: both are "accumulate state over
// several ticks before the subsystem is usable" state machines driven
// one step at a time from the main update loop rather than blocking.
package client

import (
	"fmt"

	"github.com/cormac-obrien/richter-sub002/protocol"
)

// ConnState is the top-level connection state (spec.md §4.5: "States:
// NotConnected -> Connecting -> Connected(SignOn{...})").
type ConnState int32

const (
	NotConnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case NotConnected:
		return "NotConnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "ConnState(?)"
	}
}

// SignOnStage is the Connected sub-state machine (spec.md §4.5), driven
// by the server's SignOnNum messages and named the same as the original
// engine's SignOnStage enum.
type SignOnStage int32

const (
	SignOnNone SignOnStage = iota
	SignOnPrespawn
	SignOnClientInfo
	SignOnBegin
	SignOnDone
)

func (s SignOnStage) String() string {
	switch s {
	case SignOnNone:
		return "None"
	case SignOnPrespawn:
		return "Prespawn"
	case SignOnClientInfo:
		return "ClientInfo"
	case SignOnBegin:
		return "Begin"
	case SignOnDone:
		return "Done"
	default:
		return "SignOnStage(?)"
	}
}

// MaxStats bounds the UpdateStat index the original engine addresses
// (health, ammo, armor, weapon, ... up to 32 slots).
const MaxStats = 32

// PlayerInfo is one scoreboard slot's name/frags/colors, updated
// independently by UpdateName/UpdateFrags/UpdateColors messages.
type PlayerInfo struct {
	Name   string
	Frags  int16
	Colors byte
}

// Client owns everything the receiving side of a connection
// accumulates from the server: sign-on progress, precache tables, the
// networked entity set and its interpolation state, and the assorted
// HUD/scoreboard state carried by the remaining opcodes (spec.md §4.5).
type Client struct {
	State ConnState
	Stage SignOnStage

	ProtocolVersion int32
	MaxClients      byte
	GameType        byte
	LevelName       string

	Precache Precache

	Entities       map[int32]*Entity
	StaticEntities []protocol.BaselineFields

	LightStyles map[byte]string
	Stats       [MaxStats]int32
	Scores      map[byte]*PlayerInfo

	View       protocol.ClientDataMessage
	ViewEntity int32
	ForcedView [3]float32

	Paused      bool
	CdTrack     byte
	CdLoopTrack byte

	// PrevTime/CurrTime are the two message timestamps every networked
	// entity's Interpolate call is measured against (spec.md §4.5,
	// "Time and interpolation").
	PrevTime, CurrTime float64

	// ConsoleText collects Print/CenterPrint/Finale/Cutscene payloads in
	// arrival order; Exec collects StuffText commands awaiting whatever
	// drives the console's command buffer. Both are drained by the
	// caller, not interpreted here (spec.md §6 defers command execution
	// to the console package).
	ConsoleText []string
	Exec        []string

	// Outgoing queues reliable StringCmd replies the sign-on state
	// machine emits as it advances (spec.md §4.5; wire-format grounded
	// on original_source's SignOnStage-driven client, which replies to
	// each SignOnNum with "prespawn"/"modellist"/"soundlist"/"begin").
	Outgoing []string
}

// New returns a Client ready for a fresh connection attempt.
func New() *Client {
	c := &Client{}
	c.reset()
	return c
}

func (c *Client) reset() {
	c.State = NotConnected
	c.Stage = SignOnNone
	c.Precache.reset()
	c.Entities = map[int32]*Entity{}
	c.StaticEntities = nil
	c.LightStyles = map[byte]string{}
	c.Stats = [MaxStats]int32{}
	c.Scores = map[byte]*PlayerInfo{}
	c.View = protocol.ClientDataMessage{}
	c.ViewEntity = 0
	c.Paused = false
	c.PrevTime = 0
	c.CurrTime = 0
	c.ConsoleText = nil
	c.Exec = nil
	c.Outgoing = nil
}

// BeginConnecting moves an idle client into Connecting, awaiting the
// server's ServerInfo handshake.
func (c *Client) BeginConnecting() {
	c.reset()
	c.State = Connecting
}

// Disconnect returns the client to NotConnected, dropping all
// connection-scoped state.
func (c *Client) Disconnect() {
	c.reset()
}

func (c *Client) scoreSlot(id byte) *PlayerInfo {
	p, ok := c.Scores[id]
	if !ok {
		p = &PlayerInfo{}
		c.Scores[id] = p
	}
	return p
}

func (c *Client) entitySlot(number int32) *Entity {
	e, ok := c.Entities[number]
	if !ok {
		e = &Entity{Number: number}
		c.Entities[number] = e
	}
	return e
}

// HandleMessage applies one decoded server message to client state
// (spec.md §4.5, §5 "client state update" tick phase). It never blocks
// and never performs I/O.
func (c *Client) HandleMessage(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.ServerInfoMessage:
		return c.handleServerInfo(m)
	case protocol.SignOnNumMessage:
		return c.handleSignOnNum(m)
	case protocol.TimeMessage:
		c.PrevTime = c.CurrTime
		c.CurrTime = float64(m.Time)
	case protocol.EntityUpdate:
		c.entitySlot(m.Number).applyUpdate(m, c.CurrTime)
		if c.Stage == SignOnBegin {
			// spec.md §4.5: "the first FastUpdate message after Begin"
			// completes the sign-on state machine.
			c.Stage = SignOnDone
		}
	case protocol.SpawnBaselineMessage:
		c.entitySlot(m.Entity).setBaseline(m.BaselineFields, c.CurrTime)
	case protocol.SpawnStaticMessage:
		c.StaticEntities = append(c.StaticEntities, m.BaselineFields)
	case protocol.SetViewMessage:
		c.ViewEntity = m.Entity
	case protocol.SetAngleMessage:
		c.ForcedView = m.Angles
	case protocol.ClientDataMessage:
		c.View = m
	case protocol.UpdateStatMessage:
		if int(m.Stat) >= 0 && int(m.Stat) < MaxStats {
			c.Stats[m.Stat] = m.Value
		}
	case protocol.UpdateNameMessage:
		c.scoreSlot(m.Client).Name = m.Name
	case protocol.UpdateFragsMessage:
		c.scoreSlot(m.Client).Frags = m.Frags
	case protocol.UpdateColorsMessage:
		c.scoreSlot(m.Client).Colors = m.Colors
	case protocol.LightStyleMessage:
		c.LightStyles[m.Style] = m.Pattern
	case protocol.SetPauseMessage:
		c.Paused = m.Paused
	case protocol.CdTrackMessage:
		c.CdTrack, c.CdLoopTrack = m.Track, m.LoopTrack
	case protocol.PrintMessage:
		c.ConsoleText = append(c.ConsoleText, m.Text)
	case protocol.CenterPrintMessage:
		c.ConsoleText = append(c.ConsoleText, m.Text)
	case protocol.FinaleMessage:
		c.ConsoleText = append(c.ConsoleText, m.Text)
	case protocol.CutsceneMessage:
		c.ConsoleText = append(c.ConsoleText, m.Text)
	case protocol.StuffTextMessage:
		c.Exec = append(c.Exec, m.Text)
	case protocol.Bare:
		switch m.OpCode {
		case protocol.Disconnect:
			c.Disconnect()
		}
	// Particle, Damage, Sound, TempEntity, SpawnStaticSound are
	// transient presentation events with no persistent client state;
	// the render/audio packages consume them directly off the decoded
	// message stream rather than through Client.
	case protocol.ParticleMessage, protocol.DamageMessage, protocol.SoundMessage,
		protocol.TempEntityMessage, protocol.SpawnStaticSoundMessage:
	default:
		return fmt.Errorf("client: unhandled message %T", msg)
	}
	return nil
}

func (c *Client) handleServerInfo(m protocol.ServerInfoMessage) error {
	if c.State != Connecting {
		return fmt.Errorf("client: unexpected ServerInfo in state %v", c.State)
	}
	c.ProtocolVersion = m.ProtocolVersion
	c.MaxClients = m.MaxClients
	c.GameType = m.GameType
	c.LevelName = m.LevelName
	c.Precache.Models = append([]string(nil), m.ModelNames...)
	c.Precache.Sounds = append([]string(nil), m.SoundNames...)
	c.State = Connected
	c.Stage = SignOnNone
	return nil
}

// handleSignOnNum advances the sign-on state machine and queues the
// reliable reply the original engine sends for each stage (spec.md
// §4.5).
func (c *Client) handleSignOnNum(m protocol.SignOnNumMessage) error {
	if c.State != Connected {
		return fmt.Errorf("client: unexpected SignOnNum in state %v", c.State)
	}
	stage := SignOnStage(m.Stage)
	switch stage {
	case SignOnPrespawn:
		c.Outgoing = append(c.Outgoing, "prespawn")
	case SignOnClientInfo:
		c.Outgoing = append(c.Outgoing, "modellist", "soundlist")
	case SignOnBegin:
		c.Outgoing = append(c.Outgoing, "begin")
	}
	c.Stage = stage
	return nil
}
