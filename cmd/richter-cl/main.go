// Copyright © 2024 Galvanized Logic Inc.

// Command richter-cl is a thin driver bootstrapping the engine package
// from a game directory: it loads progs.dat and the named map out of
// a virtual filesystem built from PAK archives and a loose directory,
// then hands off to Engine.Action (spec.md §1, §6).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cormac-obrien/richter-sub002/bsp"
	"github.com/cormac-obrien/richter-sub002/config"
	"github.com/cormac-obrien/richter-sub002/console"
	"github.com/cormac-obrien/richter-sub002/engine"
	"github.com/cormac-obrien/richter-sub002/pak"
	"github.com/cormac-obrien/richter-sub002/progs"
	"github.com/cormac-obrien/richter-sub002/vfs"
)

func main() {
	gameDir := flag.String("basedir", ".", "game directory containing pak0.pak etc.")
	mapName := flag.String("map", "maps/start.bsp", "map to load on startup")
	connect := flag.String("connect", "", "host:port of a server to connect to")
	port := flag.Int("port", config.Defaults.ServerPort, "UDP port (also used as the default connect port)")
	flag.Parse()

	if err := run(*gameDir, *mapName, *connect, *port); err != nil {
		fmt.Fprintf(os.Stderr, "richter-cl: %s\n", err)
		os.Exit(1)
	}
}

func run(gameDir, mapName, connectAddr string, port int) error {
	fs := vfs.New()
	for i := 0; ; i++ {
		path := filepath.Join(gameDir, fmt.Sprintf("pak%d.pak", i))
		data, err := os.ReadFile(path)
		if err != nil {
			break // no more numbered paks; fall through to the loose directory.
		}
		archive, err := pak.Open(data)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		fs.AddArchive(archive)
	}
	fs.AddDir(gameDir)

	progsData, err := fs.Open("progs.dat")
	if err != nil {
		return fmt.Errorf("loading progs.dat: %w", err)
	}
	img, err := progs.Load(progsData)
	if err != nil {
		return fmt.Errorf("decoding progs.dat: %w", err)
	}

	mapData, err := fs.Open(mapName)
	if err != nil {
		return fmt.Errorf("loading %s: %w", mapName, err)
	}
	level, err := bsp.Load(mapData)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", mapName, err)
	}

	cfg := config.New(config.ServerPort(port))
	con := console.New()

	eng, err := engine.New(cfg, img, level, fs, con)
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer eng.Shutdown()

	if connectAddr != "" {
		if err := eng.Connect(connectAddr); err != nil {
			return fmt.Errorf("connecting to %s: %w", connectAddr, err)
		}
	}

	eng.Action(con)
	return nil
}
