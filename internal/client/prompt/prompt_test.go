package prompt

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLine(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("  hello  \n"), &out)

	got, ok := p.Line("name: ")
	if !ok || got != "hello" {
		t.Errorf("Line = %q, %v; want %q, true", got, ok, "hello")
	}
	if out.String() != "name: " {
		t.Errorf("prompt = %q", out.String())
	}
	if _, ok := p.Line(""); ok {
		t.Error("expected end of input")
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		p := New(strings.NewReader(tc.input), &out)
		if got := p.Confirm("Delete post 3?"); got != tc.want {
			t.Errorf("Confirm(%q) = %v; want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "Delete post 3? [y/N]") {
			t.Errorf("unexpected prompt %q", out.String())
		}
	}
}

func TestInt(t *testing.T) {
	p := New(strings.NewReader("4\nfour\n"), &bytes.Buffer{})
	if n, err := p.Int("rating: "); err != nil || n != 4 {
		t.Errorf("Int = %d, %v; want 4", n, err)
	}
	if _, err := p.Int("rating: "); err == nil {
		t.Error("expected error for non-number")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.png")
	if err := os.WriteFile(path, []byte("png"), 0600); err != nil {
		t.Fatal(err)
	}
	p := New(strings.NewReader(path+"\n\n/no/such/file\n"), &bytes.Buffer{})

	name, data, err := p.File("file: ")
	if err != nil || name != "avatar.png" || string(data) != "png" {
		t.Errorf("File = %q, %q, %v", name, data, err)
	}

	name, data, err = p.File("file: ")
	if err != nil || name != "" || data != nil {
		t.Errorf("empty answer: File = %q, %q, %v", name, data, err)
	}

	_, _, err = p.File("file: ")
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
