// Package beep plays the short earcons around microphone use.
package beep

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"voicemail/audio"
	"voicemail/log"
)

const (
	sampleRate = 44100

	// Start: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60
	startDur    = 0.06

	// End: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40
	endDur    = 0.08

	// Error: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
	errorDur    = 0.08
	errorGap    = 0.05

	playTimeout = time.Second
)

// Beeper renders the cues once and plays them through a shared player.
// A nil Beeper is silent.
type Beeper struct {
	player   audio.Player
	disabled atomic.Bool

	start, end, fail audio.PCM
}

func New(player audio.Player) *Beeper {
	return &Beeper{
		player: player,
		start:  pcm(tick(startFreq, startDur, startVolume, startDecay)),
		end:    pcm(tick(endFreq, endDur, endVolume, endDecay)),
		fail:   pcm(doubleBeep(errorFreq, errorDur, errorGap, errorVolume, errorDecay)),
	}
}

func (b *Beeper) Disable() {
	if b != nil {
		b.disabled.Store(true)
	}
}

func (b *Beeper) Enabled() bool { return b != nil && !b.disabled.Load() }

// Start blocks until the cue has played so it does not bleed into the
// capture that follows.
func (b *Beeper) Start() { b.play(func() audio.PCM { return b.start }) }

func (b *Beeper) End() { b.play(func() audio.PCM { return b.end }) }

func (b *Beeper) Error() { b.play(func() audio.PCM { return b.fail }) }

func (b *Beeper) play(cue func() audio.PCM) {
	if !b.Enabled() || b.player == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()
	if err := b.player.Play(ctx, cue()); err != nil {
		log.Warnf("beep: %v", err)
	}
}

func pcm(samples []int16) audio.PCM {
	return audio.PCM{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return out
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	return append(out, b...)
}
