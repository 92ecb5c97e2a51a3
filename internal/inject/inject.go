// Package inject delivers transcribed text: into the active application
// using robotgo keystroke simulation or clipboard paste, or to a stream.
package inject

import (
	"fmt"
	"io"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// TextInjector delivers text to its destination.
type TextInjector interface {
	Inject(text string) error
}

// New returns the injector for method: "type" or "paste" target the active
// application, "stdout" writes to w.
func New(method string, w io.Writer) (TextInjector, error) {
	switch method {
	case "type", "paste", "":
		return NewInjector(method), nil
	case "stdout":
		return NewWriterInjector(w), nil
	default:
		return nil, fmt.Errorf("inject: unknown method %q (supported: type, paste, stdout)", method)
	}
}

// Injector handles typing or pasting text into the active application.
type Injector struct {
	method string // "type" or "paste"
	// pasteMod is the modifier held for the paste shortcut.
	pasteMod string
}

// NewInjector creates an Injector with the given method.
// method must be "type" (keystroke simulation) or "paste" (clipboard).
func NewInjector(method string) *Injector {
	return &Injector{method: method, pasteMod: pasteModifier(runtime.GOOS)}
}

// Inject sends text to the active application using the configured method.
func (inj *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	switch inj.method {
	case "paste":
		return inj.paste(text)
	default: // "type"
		return inj.typeText(text)
	}
}

// typeText simulates individual keystrokes. Preserves clipboard contents
// but is slower for long text.
func (inj *Injector) typeText(text string) error {
	robotgo.Type(text)
	return nil
}

// paste copies text to the clipboard and triggers the platform paste shortcut.
// Faster for long text; the previous clipboard is restored afterwards.
func (inj *Injector) paste(text string) error {
	prev, _ := robotgo.ReadAll()

	if err := robotgo.WriteAll(text); err != nil {
		return fmt.Errorf("inject: write to clipboard: %w", err)
	}

	if err := robotgo.KeyTap("v", inj.pasteMod); err != nil {
		return fmt.Errorf("inject: key tap %s+v: %w", inj.pasteMod, err)
	}

	// Best effort.
	_ = robotgo.WriteAll(prev)

	return nil
}

func pasteModifier(goos string) string {
	if goos == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

// WriterInjector writes each text as one line to a stream.
type WriterInjector struct {
	w io.Writer
}

// NewWriterInjector creates a WriterInjector writing to w.
func NewWriterInjector(w io.Writer) *WriterInjector {
	return &WriterInjector{w: w}
}

// Inject writes text followed by a newline. Empty text writes nothing.
func (wi *WriterInjector) Inject(text string) error {
	if text == "" {
		return nil
	}
	if _, err := fmt.Fprintln(wi.w, text); err != nil {
		return fmt.Errorf("inject: write text: %w", err)
	}
	return nil
}
