// Package transcribe turns 16 kHz mono audio into text.
//
// A Model lazily loads one shared Engine for the whole process. A Service
// wraps the Model with noise reduction and never fails: any error degrades
// to an empty transcript.
package transcribe

// Engine converts audio samples to text.
type Engine interface {
	// Process transcribes mono 16kHz float32 audio samples to text.
	Process(samples []float32) (string, error)
	// Close releases engine resources.
	Close() error
}

// Loader constructs an Engine. It is called by Model at most once per
// successful load.
type Loader func() (Engine, error)
