package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Built-in Microphone", false},
		{"Jabra Evolve 65", true},
		{"USB Audio (BT)", true},
		{"Headset [BT]", true},
		{"Headset BT", false},
		{"alsa_input.pci-0000_00_1f.3.analog-stereo", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBluetooth(tt.name); got != tt.want {
				t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}

	data := make([]byte, 200)
	for i := 0; i < 100; i++ {
		v := int16(16384)
		if i%2 == 1 {
			v = -16384
		}
		binary.LittleEndian.PutUint16(data[i*2:], uint16(v))
	}
	if got := RMS(data); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS = %v, want 0.5", got)
	}
}

func TestBytesToSamples(t *testing.T) {
	got := BytesToSamples([]byte{0x01, 0x00, 0xff, 0xff, 0x07})
	if len(got) != 2 || got[0] != 1 || got[1] != -1 {
		t.Errorf("BytesToSamples = %v, want [1 -1]", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	in := PCM{Samples: []int16{0, 100, -100, 32767, -32768}, SampleRate: 22050, Channels: 1}
	out, err := ParseWAV(EncodeWAV(in))
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if out.SampleRate != 22050 || out.Channels != 1 {
		t.Errorf("format = %d Hz/%d ch, want 22050/1", out.SampleRate, out.Channels)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("got %d samples, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d = %d, want %d", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestParseWAVStreamedLength(t *testing.T) {
	buf := EncodeWAV(PCM{Samples: []int16{1, 2, 3}, SampleRate: 16000, Channels: 1})
	binary.LittleEndian.PutUint32(buf[40:44], 0xFFFFFFFF)
	out, err := ParseWAV(buf)
	if err != nil {
		t.Fatalf("ParseWAV: %v", err)
	}
	if len(out.Samples) != 3 {
		t.Errorf("got %d samples, want 3", len(out.Samples))
	}
}

func TestParseWAVRejectsGarbage(t *testing.T) {
	if _, err := ParseWAV([]byte("not a wav file at all")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("err = %v, want ErrNotWAV", err)
	}
}

func TestPCMSeconds(t *testing.T) {
	p := PCM{Samples: make([]int16, 32000), SampleRate: 16000, Channels: 2}
	if got := p.Seconds(); got != 1.0 {
		t.Errorf("Seconds = %v, want 1.0", got)
	}
}

func TestFakeCaptureTracksRelease(t *testing.T) {
	ctx := NewFakeContext(make([]byte, 4096), false)
	capture, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Open() != 1 {
		t.Fatalf("Open = %d, want 1", ctx.Open())
	}

	var got int
	capture.SetCallback(func(data []byte, _ uint32) { got += len(data) })
	if err := capture.Start(); err != nil {
		t.Fatal(err)
	}
	capture.Stop()
	capture.ClearCallback()
	capture.Close()
	capture.Close()

	if got < 4096 {
		t.Errorf("fed %d bytes, want at least 4096", got)
	}
	if ctx.Open() != 0 {
		t.Errorf("Open = %d after Close, want 0", ctx.Open())
	}
}

func TestFakePlayer(t *testing.T) {
	p := NewFakePlayer(0, nil)
	if err := p.Play(context.Background(), PCM{Samples: []int16{1}, SampleRate: 8000, Channels: 1}); err != nil {
		t.Fatal(err)
	}
	if n := len(p.Played()); n != 1 {
		t.Errorf("played %d buffers, want 1", n)
	}

	slow := NewFakePlayer(time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := slow.Play(ctx, PCM{Samples: []int16{1}}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
