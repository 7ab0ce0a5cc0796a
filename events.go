package main

// EventSink abstracts the display layer so both the Bubble Tea TUI and the
// headless script driver receive events raised off their own loop.
type EventSink interface {
	AudioLevel(level float64)
	Notice(text string)
}

type nopSink struct{}

func (nopSink) AudioLevel(float64) {}
func (nopSink) Notice(string)      {}
