package recorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"voicemail/audio"
	"voicemail/encoder"
)

// Clip is one finished recording, held as FLAC.
type Clip struct {
	ID         string
	SampleRate int
	Duration   time.Duration
	FLAC       []byte
	CreatedAt  time.Time
}

// NewClip encodes mono samples captured at encoder.SampleRate.
func NewClip(samples []int16) (*Clip, error) {
	data, err := encoder.EncodeFlac(samples)
	if err != nil {
		return nil, fmt.Errorf("encode clip: %w", err)
	}
	return &Clip{
		ID:         uuid.NewString(),
		SampleRate: encoder.SampleRate,
		Duration:   time.Duration(len(samples)) * time.Second / encoder.SampleRate,
		FLAC:       data,
		CreatedAt:  time.Now(),
	}, nil
}

// Samples decodes the clip for playback.
func (c *Clip) Samples() (audio.PCM, error) {
	samples, rate, channels, err := encoder.DecodeFlac(c.FLAC)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("decode clip %s: %w", c.ID, err)
	}
	return audio.PCM{Samples: samples, SampleRate: rate, Channels: channels}, nil
}

func (c *Clip) Size() int { return len(c.FLAC) }
