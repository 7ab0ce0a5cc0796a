// Package dictation runs one-shot speech recognition: listen until the
// speaker stops, then return exactly one final transcript.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"voicemail/audio"
	"voicemail/encoder"
	"voicemail/transcriber"
)

var (
	ErrBusy     = errors.New("dictation already in progress")
	ErrNoSpeech = errors.New("no speech detected")
)

const (
	tickInterval = 50 * time.Millisecond

	DefaultTrailingSilence = 1200 * time.Millisecond
	DefaultNoSpeechTimeout = 6 * time.Second
	DefaultMaxLength       = 15 * time.Second
)

// EndStopped marks an utterance ended by Stop.
const EndStopped EndEvent = -1

type Options struct {
	Language        string
	Device          *audio.DeviceInfo
	TrailingSilence time.Duration
	NoSpeechTimeout time.Duration
	MaxLength       time.Duration
	Threshold       float64           // frames below this RMS skip the VAD, 0 = default
	// Detector replaces the WebRTC VAD. It is shared by every call, so it
	// must hold no per-utterance state.
	Detector Detector
	OnLevel         func(rms float64) // called from the capture goroutine
}

// Metrics describes the last dictation attempt.
type Metrics struct {
	End          EndEvent
	Captured     time.Duration
	Frames       int
	VoicedFrames int
	Provider     string
	Result       transcriber.SessionResult
	Elapsed      time.Duration
}

type Dictator struct {
	actx  audio.Context
	trans transcriber.Transcriber
	opts  Options

	busy atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
	last Metrics
}

func New(actx audio.Context, trans transcriber.Transcriber, opts Options) *Dictator {
	if opts.TrailingSilence <= 0 {
		opts.TrailingSilence = DefaultTrailingSilence
	}
	if opts.NoSpeechTimeout <= 0 {
		opts.NoSpeechTimeout = DefaultNoSpeechTimeout
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Dictator{actx: actx, trans: trans, opts: opts}
}

func (d *Dictator) Busy() bool { return d.busy.Load() }

func (d *Dictator) Provider() string { return d.trans.Name() }

func (d *Dictator) Language() string { return d.opts.Language }

func (d *Dictator) SetDevice(dev *audio.DeviceInfo) {
	d.mu.Lock()
	d.opts.Device = dev
	d.mu.Unlock()
}

// Stop ends the current capture early; whatever was heard is transcribed.
// It is a no-op when nothing is in progress.
func (d *Dictator) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		select {
		case <-d.stop:
		default:
			close(d.stop)
		}
	}
}

func (d *Dictator) LastMetrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func captureErr(err error) error {
	if errors.Is(err, audio.ErrCaptureUnavailable) {
		return fmt.Errorf("dictation: %w", err)
	}
	return fmt.Errorf("dictation: %w: %w", audio.ErrCaptureUnavailable, err)
}

// Dictate listens for one utterance and returns its transcript. It returns
// ErrBusy while another call is pending, ErrNoSpeech when nothing was
// recognized, and a wrapped audio.ErrCaptureUnavailable when the microphone
// cannot be opened.
func (d *Dictator) Dictate(ctx context.Context) (string, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer d.busy.Store(false)

	start := time.Now()
	stop := make(chan struct{})
	d.mu.Lock()
	d.stop = stop
	dev := d.opts.Device
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.stop = nil
		d.mu.Unlock()
	}()

	m := Metrics{Provider: d.trans.Name()}
	defer func() {
		m.Elapsed = time.Since(start)
		d.mu.Lock()
		d.last = m
		d.mu.Unlock()
	}()

	pcm, heard, err := d.listen(ctx, dev, stop, &m)
	if err != nil {
		return "", err
	}
	m.Captured = time.Duration(len(pcm)/2) * time.Second / encoder.SampleRate
	if !heard {
		return "", ErrNoSpeech
	}

	sess, err := d.trans.NewSession(ctx, transcriber.SessionConfig{
		Format:   "flac",
		Language: d.opts.Language,
	})
	if err != nil {
		return "", fmt.Errorf("dictation: %w", err)
	}
	sess.Feed(pcm)
	result, err := sess.Close()
	if err != nil {
		return "", fmt.Errorf("dictation: transcribe: %w", err)
	}
	m.Result = result

	text := strings.TrimSpace(result.Text)
	if result.NoSpeech || text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (d *Dictator) listen(ctx context.Context, dev *audio.DeviceInfo, stop <-chan struct{}, m *Metrics) ([]byte, bool, error) {
	det := d.opts.Detector
	if det == nil {
		var err error
		if det, err = NewDetector(d.opts.Threshold); err != nil {
			return nil, false, fmt.Errorf("dictation: vad: %w", err)
		}
	}

	capture, err := d.actx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, false, captureErr(err)
	}
	defer capture.Close()

	vp := newVADProcessor(det)
	var bufMu sync.Mutex
	var buf []byte
	capture.SetCallback(func(data []byte, _ uint32) {
		bufMu.Lock()
		buf = append(buf, data...)
		bufMu.Unlock()
		vp.Process(data)
		if d.opts.OnLevel != nil {
			d.opts.OnLevel(audio.RMS(data))
		}
	})

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		return nil, false, captureErr(err)
	}

	ep := newEndpointer(tickInterval, d.opts.TrailingSilence, d.opts.NoSpeechTimeout, d.opts.MaxLength)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			capture.Stop()
			capture.ClearCallback()
			return nil, false, ctx.Err()
		case <-stop:
			m.End = EndStopped
			break loop
		case <-ticker.C:
			if ev := ep.Tick(vp.HasSpeechTick()); ev != EndNone {
				m.End = ev
				break loop
			}
		}
	}
	capture.Stop()
	capture.ClearCallback()

	m.Frames, m.VoicedFrames = vp.Stats()

	bufMu.Lock()
	pcm := buf
	bufMu.Unlock()

	// Devices (and fakes) may deliver ahead of wall time.
	if limit := int(d.opts.MaxLength*encoder.SampleRate/time.Second) * 2; len(pcm) > limit {
		pcm = pcm[:limit]
	}
	return pcm, vp.VoiceDetected() && m.End != EndNoSpeech, nil
}
