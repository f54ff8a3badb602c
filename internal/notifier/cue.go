package notifier

import "io"

// Cue is the audible alert played when vehicles first exceed their limit.
// Failures are logged and otherwise ignored.
type Cue interface {
	Play() error
}

// CueFunc adapts a function to Cue.
type CueFunc func() error

// Play calls f.
func (f CueFunc) Play() error { return f() }

// BellCue rings the terminal bell by writing an ASCII BEL.
type BellCue struct {
	W io.Writer
}

// Play writes BEL to the underlying writer.
func (b BellCue) Play() error {
	_, err := b.W.Write([]byte{'\a'})
	return err
}

// NopCue stays silent.
type NopCue struct{}

// Play does nothing.
func (NopCue) Play() error { return nil }
