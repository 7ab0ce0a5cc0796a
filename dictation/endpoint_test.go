package dictation

import (
	"testing"
	"time"
)

const testTick = 100 * time.Millisecond

// 1s trailing silence, 3s no-speech window, 10s cap.
func testEndpointer() *endpointer {
	return newEndpointer(testTick, time.Second, 3*time.Second, 10*time.Second)
}

func feedN(e *endpointer, speech bool, n int) EndEvent {
	var last EndEvent
	for i := 0; i < n; i++ {
		last = e.Tick(speech)
	}
	return last
}

func TestEndpointNoSpeech(t *testing.T) {
	e := testEndpointer()
	for i := 0; i < 29; i++ {
		if ev := e.Tick(false); ev != EndNone {
			t.Fatalf("unexpected event at tick %d: %v", i, ev)
		}
	}
	if ev := e.Tick(false); ev != EndNoSpeech {
		t.Fatalf("expected EndNoSpeech at tick 30, got %v", ev)
	}
}

func TestEndpointTrailingSilence(t *testing.T) {
	e := testEndpointer()
	if ev := feedN(e, true, 5); ev != EndNone {
		t.Fatalf("unexpected event during speech: %v", ev)
	}
	if ev := feedN(e, false, 9); ev != EndNone {
		t.Fatalf("ended before trailing window: %v", ev)
	}
	if ev := e.Tick(false); ev != EndSilence {
		t.Fatalf("expected EndSilence, got %v", ev)
	}
}

func TestEndpointPauseResetsTrailing(t *testing.T) {
	e := testEndpointer()
	feedN(e, true, 3)
	feedN(e, false, 8)
	e.Tick(true)
	if ev := feedN(e, false, 9); ev != EndNone {
		t.Fatalf("pause between words ended the utterance: %v", ev)
	}
}

func TestEndpointLateSpeechExtendsPastNoSpeechWindow(t *testing.T) {
	e := testEndpointer()
	feedN(e, false, 25)
	e.Tick(true)
	if ev := feedN(e, false, 9); ev != EndNone {
		t.Fatalf("unexpected event: %v", ev)
	}
	if !e.Heard() {
		t.Fatal("expected Heard after speech")
	}
}

func TestEndpointMaxLength(t *testing.T) {
	e := testEndpointer()
	var got EndEvent
	for i := 0; i < 200; i++ {
		if got = e.Tick(true); got != EndNone {
			if i != 99 {
				t.Fatalf("ended at tick %d, want 99", i)
			}
			break
		}
	}
	if got != EndMaxLength {
		t.Fatalf("expected EndMaxLength, got %v", got)
	}
}

func TestTicksForRoundsUp(t *testing.T) {
	for _, tt := range []struct {
		d    time.Duration
		want int
	}{
		{0, 1},
		{50 * time.Millisecond, 1},
		{100 * time.Millisecond, 1},
		{101 * time.Millisecond, 2},
		{1200 * time.Millisecond, 12},
	} {
		if got := ticksFor(tt.d, testTick); got != tt.want {
			t.Errorf("ticksFor(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestEndEventString(t *testing.T) {
	for ev, want := range map[EndEvent]string{
		EndNone:      "none",
		EndSilence:   "silence",
		EndNoSpeech:  "no_speech",
		EndMaxLength: "max_length",
		EndStopped:   "stopped",
	} {
		if got := ev.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", ev, got, want)
		}
	}
}
