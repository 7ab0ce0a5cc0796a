package dictation

import "time"

type EndEvent int

const (
	EndNone      EndEvent = iota
	EndSilence            // speech followed by the trailing-silence window
	EndNoSpeech           // nothing heard within the no-speech window
	EndMaxLength          // utterance hit the length cap
)

func (e EndEvent) String() string {
	switch e {
	case EndSilence:
		return "silence"
	case EndNoSpeech:
		return "no_speech"
	case EndMaxLength:
		return "max_length"
	case EndStopped:
		return "stopped"
	default:
		return "none"
	}
}

// endpointer decides when a one-shot utterance is over. It is driven by
// ticks so it can be tested without a clock.
type endpointer struct {
	trailingTicks int
	noSpeechTicks int
	maxTicks      int

	ticks      int
	heard      bool
	quietTicks int
}

func ticksFor(d, tick time.Duration) int {
	n := int((d + tick - 1) / tick)
	return max(n, 1)
}

func newEndpointer(tick, trailing, noSpeech, maxLen time.Duration) *endpointer {
	return &endpointer{
		trailingTicks: ticksFor(trailing, tick),
		noSpeechTicks: ticksFor(noSpeech, tick),
		maxTicks:      ticksFor(maxLen, tick),
	}
}

func (e *endpointer) Tick(hasSpeech bool) EndEvent {
	e.ticks++
	if hasSpeech {
		e.heard = true
		e.quietTicks = 0
	} else {
		e.quietTicks++
	}

	if e.ticks >= e.maxTicks {
		if !e.heard {
			return EndNoSpeech
		}
		return EndMaxLength
	}
	if !e.heard {
		if e.ticks >= e.noSpeechTicks {
			return EndNoSpeech
		}
		return EndNone
	}
	if e.quietTicks >= e.trailingTicks {
		return EndSilence
	}
	return EndNone
}

func (e *endpointer) Heard() bool { return e.heard }
