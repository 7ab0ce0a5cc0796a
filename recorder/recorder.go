// Package recorder captures fixed-length microphone clips.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qmuntal/stateless"

	"voicemail/audio"
	"voicemail/encoder"
)

const DefaultWindow = 5 * time.Second

var ErrAlreadyRecording = errors.New("already recording")

const (
	stateIdle      = "Idle"
	stateRecording = "Recording"

	triggerStart = "Start"
	triggerStop  = "Stop"
	triggerAbort = "Abort"
)

type Options struct {
	Window  time.Duration
	Device  *audio.DeviceInfo
	OnLevel func(rms float64) // called from the capture goroutine
}

// Metrics describes the last completed recording.
type Metrics struct {
	Window     time.Duration
	Captured   time.Duration
	Samples    int
	FlacBytes  int
	EncodeTime time.Duration
	CaptureRMS float64
	DeviceName string
}

type Recorder struct {
	actx audio.Context
	opts Options

	mu      sync.Mutex
	fsm     *stateless.StateMachine
	started time.Time
	last    Metrics
}

func New(actx audio.Context, opts Options) *Recorder {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	fsm := stateless.NewStateMachine(stateIdle)
	fsm.Configure(stateIdle).
		Permit(triggerStart, stateRecording)
	fsm.Configure(stateRecording).
		Permit(triggerStop, stateIdle).
		Permit(triggerAbort, stateIdle)
	return &Recorder{actx: actx, opts: opts, fsm: fsm}
}

func (r *Recorder) Window() time.Duration { return r.opts.Window }

// SetDevice switches the microphone used by subsequent recordings.
func (r *Recorder) SetDevice(dev *audio.DeviceInfo) {
	r.mu.Lock()
	r.opts.Device = dev
	r.mu.Unlock()
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fsm.MustState() == stateRecording
}

// Elapsed is the time spent in the current recording, or zero when idle.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fsm.MustState() != stateRecording {
		return 0
	}
	return time.Since(r.started)
}

func (r *Recorder) LastMetrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) fire(trigger string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fsm.Fire(trigger)
}

func (r *Recorder) begin() (*audio.DeviceInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok, _ := r.fsm.CanFire(triggerStart); !ok {
		return nil, ErrAlreadyRecording
	}
	if err := r.fsm.Fire(triggerStart); err != nil {
		return nil, err
	}
	r.started = time.Now()
	return r.opts.Device, nil
}

func captureErr(err error) error {
	if errors.Is(err, audio.ErrCaptureUnavailable) {
		return fmt.Errorf("record: %w", err)
	}
	return fmt.Errorf("record: %w: %w", audio.ErrCaptureUnavailable, err)
}

// Record captures exactly one Window of audio and returns it as a Clip.
// It blocks for the whole window. Cancelling ctx discards the audio and
// returns ctx.Err(). The capture stream is released on every path.
func (r *Recorder) Record(ctx context.Context) (*Clip, error) {
	dev, err := r.begin()
	if err != nil {
		return nil, err
	}
	completed := false
	defer func() {
		if completed {
			r.fire(triggerStop)
		} else {
			r.fire(triggerAbort)
		}
	}()

	capture, err := r.actx.NewCapture(dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, captureErr(err)
	}
	defer capture.Close()

	var bufMu sync.Mutex
	var buf []byte
	var peak float64
	capture.SetCallback(func(data []byte, _ uint32) {
		rms := audio.RMS(data)
		bufMu.Lock()
		buf = append(buf, data...)
		peak = max(peak, rms)
		bufMu.Unlock()
		if r.opts.OnLevel != nil {
			r.opts.OnLevel(rms)
		}
	})

	if err := capture.Start(); err != nil {
		return nil, captureErr(err)
	}

	timer := time.NewTimer(r.opts.Window)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		capture.Stop()
		capture.ClearCallback()
		return nil, ctx.Err()
	case <-timer.C:
	}
	capture.Stop()
	capture.ClearCallback()

	bufMu.Lock()
	samples := audio.BytesToSamples(buf)
	level := peak
	bufMu.Unlock()

	// Devices (and fakes) may deliver ahead of wall time; the clip is the window.
	if limit := int(r.opts.Window * encoder.SampleRate / time.Second); len(samples) > limit {
		samples = samples[:limit]
	}

	encStart := time.Now()
	clip, err := NewClip(samples)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.last = Metrics{
		Window:     r.opts.Window,
		Captured:   clip.Duration,
		Samples:    len(samples),
		FlacBytes:  clip.Size(),
		EncodeTime: time.Since(encStart),
		CaptureRMS: level,
		DeviceName: capture.DeviceName(),
	}
	r.mu.Unlock()

	completed = true
	return clip, nil
}
