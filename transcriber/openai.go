package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAI transcribes through the official Whisper endpoint. go-openai owns
// the HTTP round trip, so only wall time is recorded in the metrics.
type OpenAI struct {
	baseTranscriber
	api *openai.Client
}

// NewOpenAI builds a client; an empty baseURL keeps the library default.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		baseTranscriber: baseTranscriber{apiURL: cfg.BaseURL},
		api:             openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	if cfg.Language != "" {
		o.SetLanguage(cfg.Language)
	}
	return newBatchSession(ctx, cfg, o.transcribe)
}

func (o *OpenAI) transcribe(ctx context.Context, audioData []byte, format string) (*Result, error) {
	start := time.Now()
	resp, err := o.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "audio." + format,
		Reader:   bytes.NewReader(audioData),
		Language: o.lang,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	var noSpeechProb, logProbSum float64
	segments := make([]Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		noSpeechProb = max(noSpeechProb, seg.NoSpeechProb)
		logProbSum += seg.AvgLogprob
		segments = append(segments, Segment{
			Text:         seg.Text,
			NoSpeechProb: seg.NoSpeechProb,
			AvgLogProb:   seg.AvgLogprob,
			Start:        seg.Start,
			End:          seg.End,
		})
	}
	var avgLogProb float64
	if len(segments) > 0 {
		avgLogProb = logProbSum / float64(len(segments))
	}

	h := resp.Header()
	remaining := firstNonEmpty(h, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(h, "x-ratelimit-limit-requests")

	return &Result{
		Text:         resp.Text,
		Metrics:      &NetworkMetrics{Total: time.Since(start)},
		RateLimit:    remaining + "/" + limit,
		NoSpeechProb: noSpeechProb,
		AvgLogProb:   avgLogProb,
		Duration:     resp.Duration,
		Segments:     segments,
	}, nil
}
