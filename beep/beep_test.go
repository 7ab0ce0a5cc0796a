package beep

import (
	"errors"
	"testing"
	"time"

	"voicemail/audio"
)

func TestCuesPlayThroughPlayer(t *testing.T) {
	p := audio.NewFakePlayer(0, nil)
	b := New(p)

	b.Start()
	b.End()
	b.Error()

	played := p.Played()
	if len(played) != 3 {
		t.Fatalf("played %d cues, want 3", len(played))
	}
	for i, pcm := range played {
		if pcm.SampleRate != sampleRate || pcm.Channels != 1 {
			t.Errorf("cue %d: format %d/%d", i, pcm.SampleRate, pcm.Channels)
		}
		if len(pcm.Samples) == 0 {
			t.Errorf("cue %d is empty", i)
		}
	}
	if len(played[2].Samples) <= len(played[1].Samples) {
		t.Error("error cue should be a double beep, longer than the end cue")
	}
}

func TestDisable(t *testing.T) {
	p := audio.NewFakePlayer(0, nil)
	b := New(p)
	b.Disable()
	b.Start()
	b.Error()
	if n := len(p.Played()); n != 0 {
		t.Errorf("disabled beeper played %d cues", n)
	}
}

func TestNilBeeperIsSilent(t *testing.T) {
	var b *Beeper
	b.Start()
	b.End()
	b.Error()
	b.Disable()
	if b.Enabled() {
		t.Error("nil beeper reports enabled")
	}
}

func TestPlayerErrorIsSwallowed(t *testing.T) {
	b := New(audio.NewFakePlayer(0, errors.New("device gone")))
	done := make(chan struct{})
	go func() {
		b.Start()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked on a failing player")
	}
}

func TestTickEnvelopeDecays(t *testing.T) {
	s := tick(startFreq, startDur, startVolume, startDecay)
	peak := func(xs []int16) int16 {
		var m int16
		for _, x := range xs {
			if x < 0 {
				x = -x
			}
			m = max(m, x)
		}
		return m
	}
	q := len(s) / 4
	if peak(s[:q]) <= peak(s[3*q:]) {
		t.Error("tick should decay over its duration")
	}
}
