// Package speech turns text into audio and plays it one utterance at a time.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"voicemail/audio"
)

var ErrNoSynthesizer = errors.New("no speech synthesizer available (set OPENAI_API_KEY or install espeak-ng)")

type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (audio.PCM, error)
}

type Options struct {
	OpenAIKey string
	Command   string // overrides the espeak-ng/say lookup
	Voice     string
}

// commandCandidates are tried in order when no command is configured.
var commandCandidates = []string{"espeak-ng", "espeak", "say"}

// New builds the named synthesizer. "auto" or "" prefers OpenAI when a key
// is present and falls back to a local command.
func New(kind string, opts Options) (Synthesizer, error) {
	switch kind {
	case "openai":
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("openai tts: OPENAI_API_KEY not set")
		}
		return NewOpenAI(opts.OpenAIKey, "", opts.Voice), nil
	case "command":
		return lookupCommand(opts)
	case "", "auto":
		if opts.OpenAIKey != "" {
			return NewOpenAI(opts.OpenAIKey, "", opts.Voice), nil
		}
		return lookupCommand(opts)
	default:
		return nil, fmt.Errorf("unknown speech synthesizer %q", kind)
	}
}

func lookupCommand(opts Options) (Synthesizer, error) {
	candidates := commandCandidates
	if opts.Command != "" {
		candidates = []string{opts.Command}
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return NewCommand(path, opts.Voice), nil
		}
	}
	if opts.Command != "" {
		return nil, fmt.Errorf("tts command %q not found: %w", opts.Command, ErrNoSynthesizer)
	}
	return nil, ErrNoSynthesizer
}

// Speaker is a single-slot queue in front of a Synthesizer. One utterance
// plays at a time; a newer Speak replaces whatever is still waiting, and the
// utterance already playing is never cut off.
type Speaker struct {
	synth  Synthesizer
	player audio.Player
	onErr  func(error)

	mu      sync.Mutex
	pending string
	queued  bool
	busy    bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSpeaker starts the playback worker. onErr may be nil; it is called from
// the worker goroutine.
func NewSpeaker(synth Synthesizer, player audio.Player, onErr func(error)) *Speaker {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Speaker{
		synth:  synth,
		player: player,
		onErr:  onErr,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Speak queues text and returns immediately. Blank text is ignored.
func (s *Speaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.pending = text
	s.queued = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Busy reports whether an utterance is playing or waiting.
func (s *Speaker) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy || s.queued
}

func (s *Speaker) next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.queued {
		s.busy = false
		return "", false
	}
	text := s.pending
	s.pending = ""
	s.queued = false
	s.busy = true
	return text, true
}

func (s *Speaker) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for {
			text, ok := s.next()
			if !ok {
				break
			}
			s.say(text)
			if s.ctx.Err() != nil {
				return
			}
		}
	}
}

func (s *Speaker) say(text string) {
	pcm, err := s.synth.Synthesize(s.ctx, text)
	if err != nil {
		s.report(fmt.Errorf("%s: synthesize: %w", s.synth.Name(), err))
		return
	}
	if err := s.player.Play(s.ctx, pcm); err != nil {
		s.report(fmt.Errorf("speech playback: %w", err))
	}
}

func (s *Speaker) report(err error) {
	if s.onErr == nil || s.ctx.Err() != nil {
		return
	}
	s.onErr(err)
}

// Close stops the worker, interrupting any utterance in flight.
func (s *Speaker) Close() {
	s.cancel()
	<-s.done
}
