package transcriber

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"voicemail/encoder"
)

// Whisper reports a per-segment probability that the audio held no speech.
// Segments above this are treated as hallucinated filler ("Thank you.").
const noSpeechProbCutoff = 0.8

type transcribeFunc func(ctx context.Context, audio []byte, format string) (*Result, error)

type batchSession struct {
	ctx        context.Context
	cfg        SessionConfig
	transcribe transcribeFunc
	encoder    encoder.Encoder
	blockChan  chan []int16
	encodeDone chan struct{}
	sampleBuf  []int16
	closed     bool
	bufMu      sync.Mutex
}

func newBatchSession(ctx context.Context, cfg SessionConfig, transcribe transcribeFunc) (*batchSession, error) {
	enc, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	bs := &batchSession{
		ctx:        ctx,
		cfg:        cfg,
		transcribe: transcribe,
		encoder:    enc,
		blockChan:  make(chan []int16, 64),
		encodeDone: make(chan struct{}),
	}

	go func() {
		defer close(bs.encodeDone)
		for block := range bs.blockChan {
			start := time.Now()
			bs.encoder.EncodeBlock(block)
			bs.encoder.AddEncodeTime(time.Since(start))
		}
	}()

	return bs, nil
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.bufMu.Lock()
	defer bs.bufMu.Unlock()
	if bs.closed {
		return
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		bs.sampleBuf = append(bs.sampleBuf, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	for len(bs.sampleBuf) >= encoder.BlockSize {
		block := make([]int16, encoder.BlockSize)
		copy(block, bs.sampleBuf[:encoder.BlockSize])
		bs.sampleBuf = bs.sampleBuf[encoder.BlockSize:]
		bs.blockChan <- block
	}
}

func (bs *batchSession) Close() (SessionResult, error) {
	bs.bufMu.Lock()
	if bs.closed {
		bs.bufMu.Unlock()
		return SessionResult{}, fmt.Errorf("session already closed")
	}
	bs.closed = true
	if len(bs.sampleBuf) > 0 {
		partial := make([]int16, len(bs.sampleBuf))
		copy(partial, bs.sampleBuf)
		bs.blockChan <- partial
		bs.sampleBuf = nil
	}
	close(bs.blockChan)
	bs.bufMu.Unlock()
	<-bs.encodeDone

	if err := bs.encoder.Close(); err != nil {
		return SessionResult{}, err
	}

	enc := bs.encoder
	if enc.TotalFrames() == 0 {
		return SessionResult{NoSpeech: true}, nil
	}

	audioData := enc.Bytes()
	result, err := bs.transcribe(bs.ctx, audioData, encoder.Format(enc))
	if err != nil {
		return SessionResult{}, err
	}

	text := strings.TrimSpace(result.Text)
	noSpeech := text == "" || allSilent(result.Segments)
	if noSpeech {
		text = ""
	}

	rawSize := enc.TotalFrames() * 2
	encodedSize := uint64(len(audioData))
	compressionPct := (1.0 - float64(encodedSize)/float64(rawSize)) * 100
	audioDuration := float64(enc.TotalFrames()) / float64(encoder.SampleRate)
	netMetrics := result.Metrics
	if netMetrics == nil {
		netMetrics = &NetworkMetrics{}
	}

	sr := SessionResult{
		Text:      text,
		HasText:   !noSpeech,
		NoSpeech:  noSpeech,
		RateLimit: result.RateLimit,
		Batch: &BatchStats{
			AudioLengthS:     audioDuration,
			RawSizeKB:        float64(rawSize) / 1024,
			CompressedSizeKB: float64(encodedSize) / 1024,
			CompressionPct:   compressionPct,
			EncodeTimeMs:     float64(enc.EncodeTime().Milliseconds()),
			DNSTimeMs:        float64(netMetrics.DNS.Milliseconds()),
			TLSTimeMs:        float64(netMetrics.TLS.Milliseconds()),
			TTFBMs:           float64(netMetrics.TTFB.Milliseconds()),
			TotalTimeMs:      float64(netMetrics.Elapsed().Milliseconds()),
			ConnReused:       netMetrics.ConnReused,
			TLSProtocol:      netMetrics.TLSProtocol,
		},
		Metrics: bs.formatMetrics(rawSize, encodedSize, compressionPct, audioDuration, netMetrics, result),
	}
	sr.captureMemStats()
	return sr, nil
}

func allSilent(segments []Segment) bool {
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if s.NoSpeechProb < noSpeechProbCutoff {
			return false
		}
	}
	return true
}

func (bs *batchSession) formatMetrics(rawSize, encodedSize uint64, compressionPct, audioDuration float64, metrics *NetworkMetrics, result *Result) []string {
	reusedStatus := ""
	if metrics.ConnReused {
		reusedStatus = " (reused)"
	}

	lines := []string{
		fmt.Sprintf("audio:      %.1fs | %.1f KB → %.1f KB (%.0f%% smaller)",
			audioDuration, float64(rawSize)/1024, float64(encodedSize)/1024, compressionPct),
		fmt.Sprintf("encode:     %dms (concurrent)", bs.encoder.EncodeTime().Milliseconds()),
		fmt.Sprintf("conn_wait:  %dms%s", metrics.ConnWait.Milliseconds(), reusedStatus),
		fmt.Sprintf("tls:        %dms", metrics.TLS.Milliseconds()),
		fmt.Sprintf("ttfb:       %dms", metrics.TTFB.Milliseconds()),
		fmt.Sprintf("total:      %dms", metrics.Elapsed().Milliseconds()),
	}
	if result.Duration > 0 {
		lines = append(lines, fmt.Sprintf("api_dur:    %.2fs", result.Duration))
	}
	return lines
}

func newEncoder(format string) (encoder.Encoder, error) {
	switch format {
	case "", "flac":
		return encoder.NewFlac()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
