// Package util builds a Stylus contract crate as a native shared library
// and locates the produced artifact for the launcher to load.
package util

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/colorfulnotion/stylus-replay/log"
)

// HostTriple returns the local rust toolchain's host target.
func HostTriple() (string, error) {
	out, err := exec.Command("rustc", "-vV").Output()
	if err != nil {
		return "", fmt.Errorf("rustc -vV: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if triple, ok := strings.CutPrefix(line, "host: "); ok {
			return strings.TrimSpace(triple), nil
		}
	}
	return "", fmt.Errorf("rustc -vV output has no host line")
}

// BuildSharedLibrary compiles the contract crate in project as a shared
// library for the host target, not for wasm. The replayed binary must run
// natively so the debugger can step through it.
func BuildSharedLibrary(project string) error {
	triple, err := HostTriple()
	if err != nil {
		return err
	}
	log.Info(log.BuildModule, "building contract library", "project", project, "target", triple)

	cmd := exec.Command("cargo", "build", "--lib", "--target", triple)
	cmd.Dir = project
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cargo build: %w", err)
	}
	return nil
}

// FindSharedLibrary locates the built artifact, expecting exactly one
// dynamic library under the host target's debug directory.
func FindSharedLibrary(project string) (string, error) {
	triple, err := HostTriple()
	if err != nil {
		return "", err
	}
	return findSharedLibrary(filepath.Join(project, "target", triple, "debug"))
}

func findSharedLibrary(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".so") || strings.HasSuffix(name, ".dylib") {
			found = append(found, filepath.Join(dir, name))
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("no shared library found in %s", dir)
	case 1:
		log.Debug(log.BuildModule, "found contract library", "path", found[0])
		return found[0], nil
	default:
		return "", fmt.Errorf("multiple shared libraries found in %s: %s", dir, strings.Join(found, ", "))
	}
}
