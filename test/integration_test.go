//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("VOICEMAIL_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "VOICEMAIL_TEST_BIN not set; build the binary and point the variable at it")
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "voicemail-it")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	silencePath = filepath.Join(dir, "silence.wav")
	tonePath = filepath.Join(dir, "tone.wav")
	if err := writeWAV(silencePath, 16000, 1.0, 0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}
	if err := writeWAV(tonePath, 16000, 0.5, 440); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate tone.wav: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

var silencePath, tonePath string

// writeWAV writes a mono S16 file; freq 0 gives silence.
func writeWAV(path string, sampleRate int, durationS, freq float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i := 0; i < numSamples && freq > 0; i++ {
		s := int16(12000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		binary.LittleEndian.PutUint16(buf[headerSize+i*2:], uint16(s))
	}
	return os.WriteFile(path, buf, 0644)
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// runVoicemail runs the binary in test mode with provider keys cleared so
// the fake transcriber is used unless a test opts back in.
func runVoicemail(t *testing.T, wav, stdin string, env ...string) (out, logDir string) {
	t.Helper()
	logDir = t.TempDir()

	cmd := exec.Command(testBinary, "-logpath", logDir, "-window", "200ms", "-test", wav)
	cmd.Dir = t.TempDir()
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "GROQ_API_KEY=", "OPENAI_API_KEY=", "XDG_CONFIG_HOME="+t.TempDir())
	cmd.Env = append(cmd.Env, env...)

	b, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("voicemail exited with error: %v\noutput: %s", err, b)
	}
	return string(b), logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in:\n%s", w, got)
		}
	}
}

func TestTypeAndSend(t *testing.T) {
	out, logDir := runVoicemail(t, silencePath, cmds("LOGIN a@b.com pw", "TYPE hi", "SEND", "LIST", "QUIT"))
	requireContains(t, out, "login ok", `sent text="hi" audio=false`, "messages: 1")

	diag := readLog(t, logDir, "diagnostics_log.txt")
	requireContains(t, diag, "session_start", "login", "message_sent", "text_len=2", "session_end")
	if strings.Contains(diag, `"hi"`) {
		t.Error("message text written to diagnostics log")
	}
}

func TestGateBeforeLogin(t *testing.T) {
	out, _ := runVoicemail(t, silencePath, cmds("LOGIN a@b.com", "RECORD", "SEND", "QUIT"))
	requireContains(t, out, "login ignored", "error: Please log in first", "send ignored")
}

func TestRecordAndSend(t *testing.T) {
	out, logDir := runVoicemail(t, tonePath, cmds("LOGIN a@b.com pw", "RECORD", "PLAY", "SEND", "QUIT"))
	requireContains(t, out, "recorded 0.2s", "played", `sent text="" audio=true`)
	requireContains(t, readLog(t, logDir, "diagnostics_log.txt"), "recording", "window_ms=200")
}

func TestDictateFake(t *testing.T) {
	out, logDir := runVoicemail(t, tonePath, cmds("LOGIN a@b.com pw", "DICTATE", "SEND", "QUIT"),
		"VOICEMAIL_FAKE_TRANSCRIPT=integration check")
	requireContains(t, out, "draft: integration check", `sent text="integration check"`)
	requireContains(t, readLog(t, logDir, "diagnostics_log.txt"), "dictation", "provider=fake", "end=silence")
}

func TestDictateSilence(t *testing.T) {
	out, _ := runVoicemail(t, silencePath, cmds("LOGIN a@b.com pw", "TYPE keep", "DICTATE", "LIST", "QUIT"))
	requireContains(t, out, "error: No speech detected")
}

func TestLoginSpokenOnce(t *testing.T) {
	out, _ := runVoicemail(t, silencePath, cmds("LOGIN a@b.com pw", "LOGIN c@d.com pw", "SPOKEN", "QUIT"),
		"VOICEMAIL_ANNOUNCE=false")
	requireContains(t, out, "spoken: Login successful\n")
}

func TestDictateGroq(t *testing.T) {
	key := os.Getenv("GROQ_API_KEY")
	if key == "" {
		t.Skip("GROQ_API_KEY not set")
	}
	short := filepath.Join("data", "short.wav")
	if _, err := os.Stat(short); err != nil {
		t.Skip("data/short.wav not present")
	}
	abs, _ := filepath.Abs(short)
	out, logDir := runVoicemail(t, abs, cmds("LOGIN a@b.com pw", "DICTATE", "QUIT"), "GROQ_API_KEY="+key)
	requireContains(t, out, "draft: ")
	requireContains(t, readLog(t, logDir, "diagnostics_log.txt"), "provider=groq")
}
