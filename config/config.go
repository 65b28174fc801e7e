// Copyright © 2024 Galvanized Logic Inc.

// Package config collects the engine's boot-time attributes behind
// functional options, the same API shape the teacher's config.go uses
// to keep engine.New's signature small (spec.md §1's scope: a server
// port, a window size, a fixed simulation timestep, and an entity
// budget, none of which belong as positional New() arguments).
package config

// Config holds the attributes engine.New reads once at startup.
type Config struct {
	// window
	Title    string
	Windowed bool
	X, Y     int32
	W, H     int32

	// networking
	ServerPort int

	// simulation
	Timestep   float64 // fixed update interval in seconds (spec.md §5)
	MaxEdicts  int     // entity budget (spec.md §3, "Data Model")
}

// Defaults mirrors the teacher's configDefaults: a usable engine even
// if the caller sets no attributes.
var Defaults = Config{
	Title:      "richter",
	Windowed:   false,
	X:          0,
	Y:          0,
	W:          800,
	H:          600,
	ServerPort: 26000, // spec.md §6: "Default server port 26000"
	Timestep:   1.0 / 72.0,
	MaxEdicts:  600,
}

// Attr overrides one Config attribute. For use with engine.New.
type Attr func(*Config)

// Title sets the window title when running windowed.
func Title(t string) Attr { return func(c *Config) { c.Title = t } }

// Windowed runs in a window instead of fullscreen.
func Windowed() Attr { return func(c *Config) { c.Windowed = true } }

// Size sets the window's top-left corner and pixel dimensions.
func Size(x, y, w, h int32) Attr {
	return func(c *Config) {
		if x >= 0 && x < 10_000 {
			c.X = x
		}
		if y >= 0 && y < 10_000 {
			c.Y = y
		}
		if w > 10 && w < 10_000 {
			c.W = w
		}
		if h > 10 && h < 10_000 {
			c.H = h
		}
	}
}

// ServerPort sets the UDP port the engine listens on or connects to.
func ServerPort(port int) Attr {
	return func(c *Config) {
		if port > 0 && port < 65536 {
			c.ServerPort = port
		}
	}
}

// Timestep sets the fixed simulation update interval in seconds.
func Timestep(dt float64) Attr {
	return func(c *Config) {
		if dt > 0 {
			c.Timestep = dt
		}
	}
}

// MaxEdicts sets the entity budget the world package pre-allocates.
func MaxEdicts(n int) Attr {
	return func(c *Config) {
		if n > 0 {
			c.MaxEdicts = n
		}
	}
}

// New builds a Config from Defaults plus the given overrides.
func New(attrs ...Attr) Config {
	c := Defaults
	for _, attr := range attrs {
		attr(&c)
	}
	return c
}
