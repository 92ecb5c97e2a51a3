package transcribe

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperOptions configures decoding.
type WhisperOptions struct {
	ModelPath string
	// Language is the decoding language hint, e.g. "en".
	Language string
	// BeamSize is the beam search width. Zero uses 5.
	BeamSize int
	// Threads is the number of decoding threads. Zero leaves the library default.
	Threads uint
}

// WhisperEngine wraps a whisper.cpp model for speech-to-text.
type WhisperEngine struct {
	opts  WhisperOptions
	model whisper.Model

	// whisper.cpp keeps decoder state inside the model, so decodes are serialized.
	mu sync.Mutex
}

// NewWhisperEngine loads a whisper model from opts.ModelPath.
// The caller must call Close() when done.
func NewWhisperEngine(opts WhisperOptions) (*WhisperEngine, error) {
	if opts.BeamSize <= 0 {
		opts.BeamSize = 5
	}
	model, err := whisper.New(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", opts.ModelPath, err)
	}
	return &WhisperEngine{opts: opts, model: model}, nil
}

// WhisperLoader returns a Loader that builds a WhisperEngine from opts.
func WhisperLoader(opts WhisperOptions) Loader {
	return func() (Engine, error) {
		eng, err := NewWhisperEngine(opts)
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
}

// Close releases the whisper model resources.
func (e *WhisperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Close()
	e.model = nil
	return err
}

// decodeLanguage returns the language to set on a decoding context, or "" to
// leave the model's own. English-only models reject SetLanguage, so an "en"
// or "auto" hint is dropped for them and any other hint is an error.
func decodeLanguage(hint string, multilingual bool) (string, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	switch {
	case hint == "":
		return "", nil
	case multilingual:
		return hint, nil
	case hint == "en" || hint == "auto":
		return "", nil
	default:
		return "", fmt.Errorf("transcribe: language %q needs a multilingual model", hint)
	}
}

// Process transcribes mono 16kHz float32 audio samples to text. Segments are
// joined with single spaces and the result is trimmed.
func (e *WhisperEngine) Process(samples []float32) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return "", errors.New("transcribe: whisper engine is closed")
	}

	ctx, err := e.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	lang, err := decodeLanguage(e.opts.Language, ctx.IsMultilingual())
	if err != nil {
		return "", err
	}
	if lang != "" {
		if err := ctx.SetLanguage(lang); err != nil {
			return "", fmt.Errorf("transcribe: set language %q: %w", lang, err)
		}
	}
	ctx.SetBeamSize(e.opts.BeamSize)
	ctx.SetTokenTimestamps(false)
	if e.opts.Threads > 0 {
		ctx.SetThreads(e.opts.Threads)
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}
