package speech

import (
	"context"
	"sync"
	"time"

	"voicemail/audio"
)

// FakeSynthesizer returns a short silent buffer for every request and keeps
// the texts it was asked to speak.
type FakeSynthesizer struct {
	Delay time.Duration
	Err   error

	mu    sync.Mutex
	texts []string
}

func NewFake() *FakeSynthesizer { return &FakeSynthesizer{} }

func (f *FakeSynthesizer) Name() string { return "fake" }

func (f *FakeSynthesizer) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return audio.PCM{}, ctx.Err()
		}
	}
	if f.Err != nil {
		return audio.PCM{}, f.Err
	}
	return audio.PCM{Samples: make([]int16, 160), SampleRate: 16000, Channels: 1}, nil
}

// Texts returns every text passed to Synthesize, in order.
func (f *FakeSynthesizer) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}
