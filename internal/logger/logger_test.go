package logger

import "testing"

func TestNew_IsNop(t *testing.T) {
	l := New()
	if l.Log == nil {
		t.Fatal("expected non-nil logger")
	}
	l.Log.Info("discarded")
}

func TestInit_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "Info"} {
		l := New()
		if err := l.Init(lvl); err != nil {
			t.Errorf("Init(%q) = %v", lvl, err)
		}
	}
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	if err := l.Init("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := l.InitConsole("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
