package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrNoProvider = errors.New("no transcription provider configured (set GROQ_API_KEY or OPENAI_API_KEY)")

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

// Elapsed prefers the traced phase sum and falls back to wall time for
// clients that cannot be traced.
func (m *NetworkMetrics) Elapsed() time.Duration {
	if s := m.Sum(); s > 0 {
		return s
	}
	return m.Total
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Segment struct {
	Text         string
	NoSpeechProb float64
	AvgLogProb   float64
	Start        float64
	End          float64
}

type Result struct {
	Text         string
	Metrics      *NetworkMetrics
	RateLimit    string
	NoSpeechProb float64
	AvgLogProb   float64
	Duration     float64
	Segments     []Segment
}

type Transcriber interface {
	Name() string
	SetLanguage(lang string)
	GetLanguage() string
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
}

type baseTranscriber struct {
	client *TracedClient
	apiURL string
	lang   string
}

func (b *baseTranscriber) SetLanguage(lang string) { b.lang = lang }

func (b *baseTranscriber) GetLanguage() string { return b.lang }

// Keys carries the provider credentials read from the environment.
type Keys struct {
	Groq   string
	OpenAI string
}

// New builds the named provider; "auto" or "" picks the first provider
// with a key, Groq first.
func New(provider string, keys Keys) (Transcriber, error) {
	switch provider {
	case "groq":
		if keys.Groq == "" {
			return nil, fmt.Errorf("groq: GROQ_API_KEY not set")
		}
		return NewGroq(keys.Groq), nil
	case "openai":
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
		}
		return NewOpenAI(keys.OpenAI, ""), nil
	case "", "auto":
		if keys.Groq != "" {
			return NewGroq(keys.Groq), nil
		}
		if keys.OpenAI != "" {
			return NewOpenAI(keys.OpenAI, ""), nil
		}
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", provider)
	}
}
