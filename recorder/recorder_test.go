package recorder

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voicemail/audio"
	"voicemail/encoder"
)

func tone(seconds float64) []byte {
	n := int(seconds * encoder.SampleRate)
	pcm := make([]byte, n*2)
	for i := range n {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/encoder.SampleRate) * 8000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestRecordLifecycle(t *testing.T) {
	actx := audio.NewFakeContext(tone(0.5), false)
	var levels atomic.Int32
	r := New(actx, Options{
		Window:  60 * time.Millisecond,
		OnLevel: func(float64) { levels.Add(1) },
	})
	require.False(t, r.Recording())

	start := time.Now()
	clip, err := r.Record(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)

	require.NotNil(t, clip)
	require.NotEmpty(t, clip.ID)
	require.Equal(t, encoder.SampleRate, clip.SampleRate)
	require.Equal(t, 60*time.Millisecond, clip.Duration)
	require.False(t, r.Recording())
	require.Zero(t, r.Elapsed())
	require.Equal(t, 1, actx.Opened())
	require.Zero(t, actx.Open(), "capture stream not released")
	require.Positive(t, levels.Load())

	m := r.LastMetrics()
	require.Equal(t, clip.Size(), m.FlacBytes)
	require.Equal(t, 960, m.Samples)
	require.Positive(t, m.CaptureRMS)
}

func TestDefaultWindow(t *testing.T) {
	r := New(audio.NewFakeContext(nil, false), Options{})
	require.Equal(t, DefaultWindow, r.Window())
	require.Equal(t, 5*time.Second, r.Window())
}

func TestClipDecodesToCapturedAudio(t *testing.T) {
	pcm := tone(0.1)
	actx := audio.NewFakeContext(pcm, false)
	r := New(actx, Options{Window: 50 * time.Millisecond})

	clip, err := r.Record(context.Background())
	require.NoError(t, err)

	decoded, err := clip.Samples()
	require.NoError(t, err)
	require.Equal(t, encoder.SampleRate, decoded.SampleRate)
	require.Equal(t, 1, decoded.Channels)
	require.Equal(t, audio.BytesToSamples(pcm)[:800], decoded.Samples)
}

func TestRecordRejectsReentry(t *testing.T) {
	actx := audio.NewFakeContext(tone(0.1), false)
	r := New(actx, Options{Window: 150 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := r.Record(context.Background())
		done <- err
	}()

	require.Eventually(t, r.Recording, time.Second, time.Millisecond)
	require.Positive(t, r.Elapsed())

	clip, err := r.Record(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRecording)
	require.Nil(t, clip)

	require.NoError(t, <-done)
	require.Equal(t, 1, actx.Opened(), "rejected start must not open a stream")

	_, err = r.Record(context.Background())
	require.NoError(t, err, "recorder should accept a new cycle once idle")
	require.Equal(t, 2, actx.Opened())
	require.Zero(t, actx.Open())
}

func TestRecordCancelReleasesStream(t *testing.T) {
	actx := audio.NewFakeContext(tone(0.1), false)
	r := New(actx, Options{Window: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	clip, err := r.Record(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, clip)
	require.False(t, r.Recording())
	require.Zero(t, actx.Open())
}

func TestRecordCaptureUnavailable(t *testing.T) {
	denied := errors.New("permission denied")

	t.Run("open", func(t *testing.T) {
		actx := audio.NewFakeContext(nil, false)
		actx.CaptureErr = denied
		r := New(actx, Options{Window: 10 * time.Millisecond})

		_, err := r.Record(context.Background())
		require.ErrorIs(t, err, audio.ErrCaptureUnavailable)
		require.ErrorIs(t, err, denied)
		require.False(t, r.Recording())
	})

	t.Run("start", func(t *testing.T) {
		actx := audio.NewFakeContext(nil, false)
		actx.StartErr = denied
		r := New(actx, Options{Window: 10 * time.Millisecond})

		_, err := r.Record(context.Background())
		require.ErrorIs(t, err, audio.ErrCaptureUnavailable)
		require.False(t, r.Recording())
		require.Zero(t, actx.Open())
	})
}
