package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// DecodeFlac returns the interleaved 16-bit samples of a FLAC stream along
// with its sample rate and channel count.
func DecodeFlac(data []byte) (samples []int16, sampleRate, channels int, err error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("opening flac stream: %w", err)
	}
	defer stream.Close()

	if stream.Info.BitsPerSample != BitsPerSample {
		return nil, 0, 0, fmt.Errorf("flac: unsupported bit depth %d", stream.Info.BitsPerSample)
	}
	sampleRate = int(stream.Info.SampleRate)
	channels = int(stream.Info.NChannels)

	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, 0, fmt.Errorf("parsing flac frame: %w", err)
		}
		n := int(f.BlockSize)
		for i := 0; i < n; i++ {
			for _, sub := range f.Subframes {
				samples = append(samples, int16(sub.Samples[i]))
			}
		}
	}
	return samples, sampleRate, channels, nil
}
