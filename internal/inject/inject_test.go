package inject

import (
	"bytes"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		method     string
		wantWriter bool
		wantErr    bool
	}{
		{"type", false, false},
		{"paste", false, false},
		{"", false, false},
		{"stdout", true, false},
		{"ble", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			inj, err := New(tt.method, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.method, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if _, isWriter := inj.(*WriterInjector); isWriter != tt.wantWriter {
				t.Errorf("New(%q) = %T, want writer injector: %v", tt.method, inj, tt.wantWriter)
			}
		})
	}
}

func TestInjectorEmptyTextIsNoop(t *testing.T) {
	if err := NewInjector("paste").Inject(""); err != nil {
		t.Errorf("Inject(\"\") error = %v", err)
	}
}

func TestPasteModifier(t *testing.T) {
	tests := map[string]string{
		"darwin":  "cmd",
		"linux":   "ctrl",
		"windows": "ctrl",
	}
	for goos, want := range tests {
		if got := pasteModifier(goos); got != want {
			t.Errorf("pasteModifier(%q) = %q, want %q", goos, got, want)
		}
	}
}

func TestWriterInjector(t *testing.T) {
	var buf bytes.Buffer
	wi := NewWriterInjector(&buf)

	if err := wi.Inject("hello world"); err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if err := wi.Inject(""); err != nil {
		t.Fatalf("Inject(\"\") error = %v", err)
	}
	if got := buf.String(); got != "hello world\n" {
		t.Errorf("output = %q, want %q", got, "hello world\n")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriterInjectorError(t *testing.T) {
	if err := NewWriterInjector(failingWriter{}).Inject("text"); err == nil {
		t.Error("Inject() should return the write error")
	}
}
