//go:build mage

// Package main contains Mage build targets for doc2md developer tooling.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir     = "bin"
	versionPkg = "main.version"
)

// binaries maps each output binary to its command package.
var binaries = map[string]string{
	"doc2md":        "./cmd/doc2md",
	"doc2md-server": "./cmd/doc2md-server",
}

// Default target when mage runs without arguments.
var Default = Build

func version() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	if v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty"); err == nil && v != "" {
		return v
	}
	return "dev"
}

// Build compiles doc2md and doc2md-server into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	ldflags := fmt.Sprintf("-s -w -X %s=%s", versionPkg, version())
	for name, pkg := range binaries {
		out := filepath.Join(binDir, name)
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, pkg); err != nil {
			return fmt.Errorf("go build %s: %w", pkg, err)
		}
		fmt.Printf("Built %s\n", out)
	}
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Smoke builds the CLI and checks the end-to-end contract on a text file and
// a missing file.
func Smoke() error {
	mg.Deps(Build)

	dir, err := os.MkdirTemp("", "doc2md-smoke")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	sample := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(sample, []byte("Hello"), 0o644); err != nil {
		return err
	}
	bin := filepath.Join(binDir, "doc2md")

	out, err := sh.Output(bin, sample)
	if err != nil {
		return fmt.Errorf("converting sample: %w", err)
	}
	if out != `{"markdown": "Hello"}` {
		return fmt.Errorf("unexpected output %q", out)
	}

	var stderr bytes.Buffer
	ran, err := sh.Exec(nil, nil, &stderr, bin, filepath.Join(dir, "missing.pdf"))
	if !ran || err == nil || sh.ExitStatus(err) != 1 {
		return fmt.Errorf("missing file: want exit status 1, got %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(stderr.Bytes(), &payload); err != nil || payload["error"] == "" {
		return fmt.Errorf("missing file: stderr is not an error payload: %q", stderr.String())
	}

	fmt.Println("Smoke test passed.")
	return nil
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	var prod, test, words int
	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == binDir || (d.Name() != "." && strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		switch ext := filepath.Ext(path); {
		case ext == ".go":
			n, err := countLines(path)
			if err != nil {
				return err
			}
			if strings.HasSuffix(path, "_test.go") {
				test += n
			} else {
				prod += n
			}
		case ext == ".md":
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			words += len(strings.Fields(string(data)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	fmt.Printf("Words (documentation):           %d\n", words)
	return nil
}

// countLines counts non-blank lines in the file at path.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
