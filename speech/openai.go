package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"voicemail/audio"
)

// OpenAI's "pcm" response format is raw 24 kHz mono S16LE.
const openAIPCMRate = 24000

type OpenAI struct {
	api   *openai.Client
	voice openai.SpeechVoice
}

func NewOpenAI(apiKey, baseURL, voice string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &OpenAI{
		api:   openai.NewClientWithConfig(cfg),
		voice: openai.SpeechVoice(voice),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	resp, err := o.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return audio.PCM{}, err
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("read speech: %w", err)
	}
	return audio.PCM{
		Samples:    audio.BytesToSamples(data),
		SampleRate: openAIPCMRate,
		Channels:   1,
	}, nil
}
