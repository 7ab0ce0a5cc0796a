package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

const diagFileName = "diagnostics_log.txt"

var (
	diagLog  zerolog.Logger
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	pid      int
	dir      string
)

// RecordingData describes one finished clip recording.
type RecordingData struct {
	WindowMs   float64
	CapturedMs float64
	Samples    int
	FlacKB     float64
	EncodeMs   float64
	PeakRMS    float64
	Device     string
}

// DictationData describes one dictation attempt. Transcripts are never
// logged, only their length.
type DictationData struct {
	Provider     string
	Language     string
	End          string
	AudioS       float64
	VoicedFrames int
	Frames       int
	TextLen      int
	NoSpeech     bool
	TotalMs      float64
	ConnReused   bool
	TLSProtocol  string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag (or log_path in the config file)
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: VOICEMAIL_LOG_PATH environment variable
	if envPath := os.Getenv("VOICEMAIL_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(stt, tts, language string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("stt", stt).
		Str("tts", tts).
		Str("language", language).
		Msg("session_start")
}

func Login() {
	if logReady {
		diagLog.Info().Msg("login")
	}
}

func RecordingMetrics(m RecordingData) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", m.Device).
		Float64("window_ms", m.WindowMs).
		Float64("captured_ms", m.CapturedMs).
		Int("samples", m.Samples).
		Float64("flac_kb", m.FlacKB).
		Float64("encode_ms", m.EncodeMs).
		Float64("peak_rms", m.PeakRMS).
		Msg("recording")
}

func DictationMetrics(m DictationData) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().
		Str("provider", m.Provider).
		Str("language", m.Language).
		Str("end", m.End).
		Str("conn", connStatus)
	if m.TLSProtocol != "" {
		ev = ev.Str("tls_proto", m.TLSProtocol)
	}
	ev.Float64("audio_s", m.AudioS).
		Int("voiced_frames", m.VoicedFrames).
		Int("frames", m.Frames).
		Int("text_len", m.TextLen).
		Bool("no_speech", m.NoSpeech).
		Float64("total_ms", m.TotalMs).
		Msg("dictation")
}

func MessageSent(id int64, textLen int, hasAudio bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int64("id", id).
		Int("text_len", textLen).
		Bool("audio", hasAudio).
		Msg("message_sent")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("messages", count).
		Msg("session_end")
}
