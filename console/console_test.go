// Copyright © 2024 Galvanized Logic Inc.

package console

import "testing"

func TestSetCreatesAndUpdatesCvar(t *testing.T) {
	c := New()
	c.Set("sensitivity", "3.5")
	v, ok := c.Cvar("sensitivity")
	if !ok {
		t.Fatal("expected sensitivity to be registered")
	}
	if v.Float() != 3.5 {
		t.Errorf("Float() = %v, want 3.5", v.Float())
	}
}

func TestCvarNumericParseFailureYieldsZero(t *testing.T) {
	c := New()
	c.RegisterCvar("name", "not-a-number", 0)
	v, _ := c.Cvar("name")
	if v.Float() != 0 || v.Int() != 0 {
		t.Errorf("expected 0 on parse failure, got Float=%v Int=%v", v.Float(), v.Int())
	}
}

func TestExecuteSplitsOnSemicolonAndNewline(t *testing.T) {
	c := New()
	var called []string
	c.RegisterCommand("noop_cmd", func(args []string) error {
		called = append(called, "noop_cmd")
		return nil
	})
	if err := c.Execute("set a 1; noop_cmd\nset b 2"); err != nil {
		t.Fatalf("Execute: %s", err)
	}
	if len(called) != 1 {
		t.Errorf("expected noop_cmd called once, got %d", len(called))
	}
	a, _ := c.Cvar("a")
	b, _ := c.Cvar("b")
	if a.Value != "1" || b.Value != "2" {
		t.Errorf("a=%q b=%q, want 1 and 2", a.Value, b.Value)
	}
}

func TestExecuteHandlesQuotedStrings(t *testing.T) {
	c := New()
	if err := c.Execute(`set greeting "hello; world"`); err != nil {
		t.Fatalf("Execute: %s", err)
	}
	v, _ := c.Cvar("greeting")
	if v.Value != "hello; world" {
		t.Errorf("Value = %q, want %q", v.Value, "hello; world")
	}
}

func TestExecuteRejectsUnknownCommand(t *testing.T) {
	c := New()
	if err := c.Execute("frobnicate"); err == nil {
		t.Error("expected an error for an unregistered command")
	}
}

func TestSetNotifiesUserInfoChangeOnlyWhenConnected(t *testing.T) {
	c := New()
	c.RegisterCvar("name", "player", UserInfo)
	var notified bool
	c.OnUserInfoChange = func(name, value string) { notified = true }

	c.Set("name", "newname")
	if notified {
		t.Error("should not notify while not connected")
	}
	c.Connected = true
	c.Set("name", "othername")
	if !notified {
		t.Error("expected a notification once connected")
	}
}

func TestExecYamlDocumentSetsCvars(t *testing.T) {
	c := New()
	err := c.Exec([]byte("crosshair: \"1\"\nvolume: \"0.7\"\n"))
	if err != nil {
		t.Fatalf("Exec: %s", err)
	}
	cross, _ := c.Cvar("crosshair")
	vol, _ := c.Cvar("volume")
	if cross.Value != "1" || vol.Float() != 0.7 {
		t.Errorf("crosshair=%q volume=%v", cross.Value, vol.Float())
	}
}

func TestExecPlainTextScriptFallsBackToExecute(t *testing.T) {
	c := New()
	if err := c.Exec([]byte("set fov 90\n")); err != nil {
		t.Fatalf("Exec: %s", err)
	}
	v, _ := c.Cvar("fov")
	if v.Value != "90" {
		t.Errorf("fov = %q, want 90", v.Value)
	}
}
