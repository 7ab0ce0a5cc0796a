package dictation

import (
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"voicemail/audio"
	"voicemail/encoder"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2 // 640 bytes
	vadDebounce   = 3                                          // consecutive speech frames to confirm voice
	vadFloor      = 0.005                                      // frames quieter than this skip the VAD
	tickShare     = 0.10                                       // share of speech frames for a tick to count
)

// Detector classifies one 20ms frame of 16kHz S16LE mono PCM.
type Detector interface {
	Voiced(frame []byte) (bool, error)
}

type webrtcDetector struct {
	vad   *webrtcvad.VAD
	floor float64
}

// NewDetector returns a WebRTC voice detector in its most aggressive mode.
// Frames with RMS below floor are reported unvoiced without consulting the
// VAD; floor <= 0 selects a default room-noise level.
func NewDetector(floor float64) (Detector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	if floor <= 0 {
		floor = vadFloor
	}
	return &webrtcDetector{vad: v, floor: floor}, nil
}

func (d *webrtcDetector) Voiced(frame []byte) (bool, error) {
	if audio.RMS(frame) < d.floor {
		return false, nil
	}
	return d.vad.Process(encoder.SampleRate, frame)
}

type vadProcessor struct {
	det Detector

	mu            sync.Mutex
	buf           []byte
	speechRun     int
	voiceDetected bool
	totalFrames   int
	speechFrames  int
	tickTotal     int
	tickSpeech    int
}

func newVADProcessor(det Detector) *vadProcessor {
	return &vadProcessor{det: det}
}

func (p *vadProcessor) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, data...)
	for len(p.buf) >= vadFrameBytes {
		frame := p.buf[:vadFrameBytes]
		p.buf = p.buf[vadFrameBytes:]

		active, err := p.det.Voiced(frame)
		if err != nil {
			continue
		}
		p.totalFrames++
		if !active {
			p.speechRun = 0
			continue
		}
		p.speechFrames++
		p.speechRun++
		if p.speechRun >= vadDebounce {
			p.voiceDetected = true
		}
	}
}

func (p *vadProcessor) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

// HasSpeechTick reports whether speech was heard since the previous call.
// Nothing counts until the debounce has confirmed voice once.
func (p *vadProcessor) HasSpeechTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.totalFrames - p.tickTotal
	s := p.speechFrames - p.tickSpeech
	p.tickTotal, p.tickSpeech = p.totalFrames, p.speechFrames
	if t == 0 || !p.voiceDetected {
		return false
	}
	return float64(s)/float64(t) >= tickShare
}

func (p *vadProcessor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}
