package dictation

import "voicemail/audio"

const fakeThreshold = 0.02

// FakeDetector treats any frame at or above Threshold RMS as speech. Synthetic
// fixtures such as pure tones are not reliably voiced for the WebRTC VAD.
type FakeDetector struct {
	Threshold float64 // 0 = 0.02
}

func (f FakeDetector) Voiced(frame []byte) (bool, error) {
	th := f.Threshold
	if th <= 0 {
		th = fakeThreshold
	}
	return audio.RMS(frame) >= th, nil
}
