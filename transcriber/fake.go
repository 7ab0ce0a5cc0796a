package transcriber

import (
	"context"
	"fmt"
	"sync"
)

// FakeTranscriber returns a canned transcript and records how much audio
// every session was fed.
type FakeTranscriber struct {
	text string
	err  error
	lang string

	mu    sync.Mutex
	bytes []int
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

func (f *FakeTranscriber) Name() string           { return "fake" }
func (f *FakeTranscriber) SetLanguage(lang string) { f.lang = lang }
func (f *FakeTranscriber) GetLanguage() string     { return f.lang }

func (f *FakeTranscriber) NewSession(_ context.Context, cfg SessionConfig) (Session, error) {
	if cfg.Language != "" {
		f.lang = cfg.Language
	}
	return &fakeSession{parent: f}, nil
}

// Fed returns the number of PCM bytes each closed session received.
func (f *FakeTranscriber) Fed() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.bytes...)
}

type fakeSession struct {
	parent *FakeTranscriber
	mu     sync.Mutex
	fed    int
}

func (s *fakeSession) Feed(pcm []byte) {
	s.mu.Lock()
	s.fed += len(pcm)
	s.mu.Unlock()
}

func (s *fakeSession) Close() (SessionResult, error) {
	s.mu.Lock()
	fed := s.fed
	s.mu.Unlock()

	f := s.parent
	f.mu.Lock()
	f.bytes = append(f.bytes, fed)
	f.mu.Unlock()

	if f.err != nil {
		return SessionResult{}, fmt.Errorf("fake transcriber error: %w", f.err)
	}
	r := SessionResult{
		Text:     f.text,
		HasText:  f.text != "",
		NoSpeech: f.text == "",
		Batch: &BatchStats{
			AudioLengthS: float64(fed) / 2 / 16000,
			TotalTimeMs:  10,
		},
		Metrics: []string{"total: 10ms (fake)"},
	}
	r.captureMemStats()
	return r, nil
}
