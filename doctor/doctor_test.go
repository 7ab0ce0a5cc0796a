package doctor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"voicemail/audio"
	"voicemail/dictation"
	"voicemail/hotkey"
	"voicemail/speech"
	"voicemail/transcriber"
)

func tone(ms int) []byte {
	n := 16000 * ms / 1000
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(12000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func fakeDeps(pcm []byte, input string) (Deps, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return Deps{
		Audio:    audio.NewFakeContext(pcm, false),
		Player:   audio.NewFakePlayer(0, nil),
		Synth:    speech.NewFake(),
		Trans:    transcriber.NewFake("testing one two", nil),
		Language: "en",
		VAD:      dictation.FakeDetector{},
		Window:   100 * time.Millisecond,
		In:       strings.NewReader(input),
		Out:      out,
	}, out
}

func TestRunAllConfirmed(t *testing.T) {
	// mic: enter, confirm playback; speech: confirm; dictation: enter, confirm
	deps, out := fakeDeps(tone(300), "\ny\ny\n\ny\n")
	fk := hotkey.NewFake()
	fk.SimKeydown()
	fk.SimKeyup()
	deps.Hotkey = fk

	run(deps)

	got := out.String()
	for _, want := range []string{
		"PASS: hotkey detected",
		"PASS: microphone verified",
		"PASS: speech synthesis verified",
		"Transcribed text: testing one two",
		"PASS: transcription verified by user",
		"[5/5] Clipboard",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name   string
		pcm    []byte
		input  string
		mutate func(*Deps)
		want   string
	}{
		{
			name: "silent microphone",
			pcm:  nil,
			want: "FAIL: microphone delivered silence",
		},
		{
			name:   "capture unavailable",
			pcm:    tone(300),
			mutate: func(d *Deps) { d.Audio.(*audio.FakeContext).CaptureErr = errors.New("no device") },
			want:   "FAIL: recording error",
		},
		{
			name:   "no synthesizer",
			pcm:    tone(300),
			input:  "\ny\n",
			mutate: func(d *Deps) { d.Synth = nil },
			want:   "FAIL: " + speech.ErrNoSynthesizer.Error(),
		},
		{
			name:   "no transcriber",
			pcm:    tone(300),
			input:  "\ny\ny\n",
			mutate: func(d *Deps) { d.Trans, d.TransErr = nil, errors.New("GROQ_API_KEY not set") },
			want:   "FAIL: GROQ_API_KEY not set",
		},
		{
			name:  "playback denied",
			pcm:   tone(300),
			input: "\nn\n",
			want:  "FAIL: playback not confirmed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, out := fakeDeps(tt.pcm, tt.input)
			if tt.mutate != nil {
				tt.mutate(&deps)
			}
			if code := run(deps); code != 1 {
				t.Errorf("exit code %d, want 1", code)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q\n%s", tt.want, out.String())
			}
		})
	}
}

func TestHotkeySkippedWhenDisabled(t *testing.T) {
	deps, out := fakeDeps(tone(300), "")
	d := &doctor{Deps: deps}
	if !d.checkHotkey() {
		t.Fatal("disabled hotkey should not fail")
	}
	if !strings.Contains(out.String(), "SKIP") {
		t.Errorf("expected SKIP, got %q", out.String())
	}
}
