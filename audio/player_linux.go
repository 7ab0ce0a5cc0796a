//go:build linux

package audio

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

type pulsePlayer struct {
	client *pulse.Client
}

func NewPlayer() (Player, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulsePlayer{client: c}, nil
}

func (p *pulsePlayer) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}

	pos := 0
	samples := pcm.Samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})

	layout := pulse.PlaybackMono
	volumes := proto.ChannelVolumes{uint32(proto.VolumeNorm)}
	if pcm.Channels == 2 {
		layout = pulse.PlaybackStereo
		volumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
	}

	stream, err := p.client.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(cp *proto.CreatePlaybackStream) {
			cp.ChannelVolumes = volumes
		}),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	defer stream.Close()

	drained := make(chan struct{})
	stream.Start()
	go func() {
		stream.Drain()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}
	stream.Stop()
	return stream.Error()
}

func (p *pulsePlayer) Close() {
	p.client.Close()
}
