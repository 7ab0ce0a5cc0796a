package encoder

import "time"

// Capture format shared by the recorder, dictation and the transcribers.
const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	Bytes() []byte
	TotalFrames() uint64
	AddEncodeTime(d time.Duration)
	EncodeTime() time.Duration
}

// Format names the container an Encoder produces, as sent to transcription APIs.
func Format(enc Encoder) string {
	switch enc.(type) {
	case *FlacEncoder:
		return "flac"
	default:
		return "raw"
	}
}
