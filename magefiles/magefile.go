//go:build mage

// Package main contains Mage build targets for pdftools.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binDir = "bin"

// version is stamped into binaries; override with PDFTOOLS_VERSION.
func version() string {
	if v := os.Getenv("PDFTOOLS_VERSION"); v != "" {
		return v
	}
	return "dev"
}

// Build compiles the pdftools CLI and the functions binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	ldflags := "-X main.version=" + version()
	targets := map[string]string{
		"pdftools":          "./cmd/pdftools",
		"pdftools-function": "./cmd/pdftools-function",
	}
	for name, pkg := range targets {
		out := filepath.Join(binDir, name)
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, pkg); err != nil {
			return fmt.Errorf("go build %s: %w", pkg, err)
		}
	}
	return nil
}

// Test runs every test with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Lint runs go vet.
func Lint() error {
	return sh.RunV("go", "vet", "./...")
}

// Check lints and tests.
func Check() {
	mg.SerialDeps(Lint, Test)
}

// Serve builds and starts the server with the default configuration.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, "pdftools"), "serve")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
