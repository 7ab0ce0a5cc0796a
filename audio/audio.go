package audio

import (
	"context"
	"errors"
	"math"
	"strings"
)

const WAVHeaderSize = 44

// ErrCaptureUnavailable wraps any failure to open or start a microphone
// stream, including denied permission and missing devices.
var ErrCaptureUnavailable = errors.New("microphone unavailable")

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]", "(bt)", "[bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return len(p.Samples)
	}
	return len(p.Samples) / p.Channels
}

func (p PCM) Seconds() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// Player blocks until the buffer has been handed to the output device and
// drained, or ctx is done.
type Player interface {
	Play(ctx context.Context, pcm PCM) error
	Close()
}

// RMS returns the normalized root-mean-square level of little-endian S16 data.
func RMS(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(uint16(data[i]) | uint16(data[i+1])<<8)
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(n))
}

// BytesToSamples decodes little-endian S16 bytes, dropping a trailing odd byte.
func BytesToSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
	}
	return out
}
