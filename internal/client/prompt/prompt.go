// Package prompt reads interactive input for the terminal client. All reads
// share one scanner so prompts and REPL commands consume the same stream.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Prompter asks questions on out and reads answers line by line from in.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Out is the writer prompts are printed to.
func (p *Prompter) Out() io.Writer {
	return p.out
}

// Line prints label and returns the trimmed answer. ok is false at end of
// input.
func (p *Prompter) Line(label string) (answer string, ok bool) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Text is Line without the end-of-input flag.
func (p *Prompter) Text(label string) string {
	s, _ := p.Line(label)
	return s
}

// Int reads a whole number.
func (p *Prompter) Int(label string) (int, error) {
	s := p.Text(label)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return n, nil
}

// Confirm asks a yes/no question defaulting to no.
func (p *Prompter) Confirm(question string) bool {
	answer := strings.ToLower(p.Text(question + " [y/N]: "))
	return answer == "y" || answer == "yes"
}

// File asks for a path and reads it. An empty answer returns no file.
func (p *Prompter) File(label string) (name string, data []byte, err error) {
	path := p.Text(label)
	if path == "" {
		return "", nil, nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	return filepath.Base(path), data, nil
}
