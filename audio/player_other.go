//go:build !linux

package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoPlayer struct {
	ctx *malgo.AllocatedContext
	mu  sync.Mutex // serializes Play
}

func NewPlayer() (Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}
	return &malgoPlayer{ctx: ctx}, nil
}

func (p *malgoPlayer) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	channels := pcm.Channels
	if channels <= 0 {
		channels = 1
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(channels)
	config.SampleRate = uint32(pcm.SampleRate)

	var posMu sync.Mutex
	pos := 0
	done := make(chan struct{})
	var doneOnce sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			posMu.Lock()
			defer posMu.Unlock()
			want := int(frameCount) * channels
			i := 0
			for ; i < want && pos < len(pcm.Samples); i++ {
				s := uint16(pcm.Samples[pos])
				out[i*2] = byte(s)
				out[i*2+1] = byte(s >> 8)
				pos++
			}
			for ; i < want; i++ {
				out[i*2] = 0
				out[i*2+1] = 0
			}
			if pos >= len(pcm.Samples) {
				doneOnce.Do(func() { close(done) })
			}
		},
	}

	dev, err := malgo.InitDevice(p.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("malgo playback init: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("malgo playback start: %w", err)
	}
	defer dev.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *malgoPlayer) Close() {
	p.ctx.Uninit()
	p.ctx.Free()
}
