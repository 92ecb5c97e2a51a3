package transcribe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chaz8081/gostt-prompt/internal/audio"
	"github.com/chaz8081/gostt-prompt/internal/config"
)

// whisperModelPath resolves the configured default model. The test is skipped
// when it has not been downloaded.
func whisperModelPath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(config.DefaultModelsDir(), config.DefaultModelName)
	if env := os.Getenv("GOSTT_TEST_MODEL"); env != "" {
		path = env
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("model not found at %s (run 'gostt-prompt download-model' first): %v", path, err)
	}
	return path
}

func TestNewWhisperEngine(t *testing.T) {
	path := whisperModelPath(t)

	eng, err := NewWhisperEngine(WhisperOptions{ModelPath: path, Language: "en"})
	if err != nil {
		t.Fatalf("NewWhisperEngine(%q) returned error: %v", path, err)
	}
	if eng.opts.BeamSize != 5 {
		t.Errorf("BeamSize = %d, want default 5", eng.opts.BeamSize)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if _, err := eng.Process(make([]float32, 16000)); err == nil {
		t.Error("Process after Close should return error")
	}
}

func TestNewWhisperEngineBadPath(t *testing.T) {
	_, err := NewWhisperEngine(WhisperOptions{ModelPath: "/nonexistent/model.bin"})
	if err == nil {
		t.Fatal("NewWhisperEngine with bad path should return error")
	}
}

func TestWhisperProcessSilence(t *testing.T) {
	path := whisperModelPath(t)

	eng, err := NewWhisperEngine(WhisperOptions{ModelPath: path, Language: "en"})
	if err != nil {
		t.Fatalf("NewWhisperEngine: %v", err)
	}
	defer func() { _ = eng.Close() }()

	// Three 0.4s blocks of silence; any text is acceptable, errors are not.
	// The default model is English-only, so this also covers the "en" hint.
	if _, err := eng.Process(make([]float32, 3*6400)); err != nil {
		t.Fatalf("Process on silence returned error: %v", err)
	}
}

func TestWhisperProcessSample(t *testing.T) {
	path := whisperModelPath(t)
	wavPath := os.Getenv("GOSTT_TEST_JFK_WAV")
	if wavPath == "" {
		t.Skip("GOSTT_TEST_JFK_WAV not set")
	}

	samples, rate, err := audio.ReadWAV(wavPath)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	samples = audio.Resample(samples, rate, 16000)

	eng, err := NewWhisperEngine(WhisperOptions{ModelPath: path, Language: "en"})
	if err != nil {
		t.Fatalf("NewWhisperEngine: %v", err)
	}
	defer func() { _ = eng.Close() }()

	text, err := eng.Process(samples)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !strings.Contains(strings.ToLower(text), "ask not what your country") {
		t.Errorf("expected transcript to contain 'ask not what your country', got: %q", text)
	}
}

func TestDecodeLanguage(t *testing.T) {
	tests := []struct {
		name         string
		hint         string
		multilingual bool
		want         string
		wantErr      bool
	}{
		{"no hint", "", true, "", false},
		{"english on english-only model", "en", false, "", false},
		{"auto on english-only model", "auto", false, "", false},
		{"english on multilingual model", "en", true, "en", false},
		{"hint is normalized", " DE ", true, "de", false},
		{"other language on english-only model", "de", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeLanguage(tt.hint, tt.multilingual)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeLanguage(%q, %v) error = %v, wantErr %v", tt.hint, tt.multilingual, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("decodeLanguage(%q, %v) = %q, want %q", tt.hint, tt.multilingual, got, tt.want)
			}
		})
	}
}

func TestDefaultModelIsEnglishOnly(t *testing.T) {
	// The default config pairs an .en model with the "en" hint; that must not
	// be a decode error.
	if !strings.Contains(config.DefaultModelName, ".en") {
		t.Skipf("default model %s is multilingual", config.DefaultModelName)
	}
	cfg := config.Default()
	if _, err := decodeLanguage(cfg.Transcribe.Language, false); err != nil {
		t.Errorf("default language %q rejected for English-only model: %v", cfg.Transcribe.Language, err)
	}
}
