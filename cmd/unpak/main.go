// Copyright © 2024 Galvanized Logic Inc.

// Command unpak lists or extracts the contents of a PACK archive
// (spec.md §6, "PAK archive"), a thin driver over the pak package.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cormac-obrien/richter-sub002/pak"
)

func main() {
	extractDir := flag.String("x", "", "extract all entries into this directory instead of listing them")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-x dir] pakfile\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0), *extractDir); err != nil {
		fmt.Fprintf(os.Stderr, "unpak: %s\n", err)
		os.Exit(1)
	}
}

func run(path, extractDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	archive, err := pak.Open(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if extractDir == "" {
		for _, name := range archive.Names() {
			fmt.Println(name)
		}
		return nil
	}
	return extract(archive, extractDir)
}

func extract(archive *pak.Archive, dir string) error {
	for _, name := range archive.Names() {
		b, err := archive.Bytes(name)
		if err != nil {
			return fmt.Errorf("reading entry %q: %w", name, err)
		}
		dest := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, b, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		fmt.Println(dest)
	}
	return nil
}
