package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"voicemail/audio"
	"voicemail/composer"
	"voicemail/config"
	"voicemail/dictation"
	"voicemail/log"
	"voicemail/speech"
	"voicemail/transcriber"
)

const defaultFakeTranscript = "hello from voicemail"

// runTestMode drives the composer headlessly from a line script on in,
// replaying wavPath as the microphone. Speech output goes to a fake player;
// transcription uses the configured provider when a key is present.
func runTestMode(cfg *config.Config, wavPath string, in io.Reader, out io.Writer) int {
	actx, err := audio.NewFakeContextFromWAV(wavPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}

	// Without a provider the fixtures are generated tones, which the WebRTC
	// VAD may not voice.
	var vad dictation.Detector
	trans, err := transcriber.New(cfg.STT, keys(cfg))
	if err != nil {
		vad = dictation.FakeDetector{}
		text := os.Getenv("VOICEMAIL_FAKE_TRANSCRIPT")
		if text == "" {
			text = defaultFakeTranscript
		}
		trans = transcriber.NewFake(text, nil)
	}
	synth := speech.NewFake()

	a := newApp(cfg, actx, audio.NewFakePlayer(0, nil), trans, synth, vad, nil)
	a.beeper.Disable()
	defer a.close()

	log.SessionStart(trans.Name(), synth.Name(), cfg.Language)
	code := runScript(context.Background(), a, synth.Texts, in, out)
	log.SessionEnd(a.comp.Session().Count())
	return code
}

// runScript executes one command per line:
//
//	LOGIN <email> <password>   TYPE <text>   DICTATE   RECORD
//	SEND   PLAY   READ <n>   LIST   SPOKEN   SLEEP <ms>   QUIT
func runScript(ctx context.Context, a *app, spoken func() []string, in io.Reader, out io.Writer) int {
	c := a.comp
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(cmd) {
		case "LOGIN":
			email, password, _ := strings.Cut(arg, " ")
			if c.Login(email, password) {
				fmt.Fprintln(out, "login ok")
			} else {
				fmt.Fprintln(out, "login ignored")
			}
		case "TYPE":
			c.SetDraft(arg)
			fmt.Fprintf(out, "draft: %s\n", c.Draft())
		case "DICTATE":
			if _, err := a.dictate(ctx); err != nil {
				fmt.Fprintf(out, "error: %s\n", composer.Describe(err))
				continue
			}
			fmt.Fprintf(out, "draft: %s\n", c.Draft())
		case "RECORD":
			clip, err := a.record(ctx)
			if err != nil {
				fmt.Fprintf(out, "error: %s\n", composer.Describe(err))
				continue
			}
			fmt.Fprintf(out, "recorded %.1fs\n", clip.Duration.Seconds())
		case "SEND":
			m, ok := c.Send()
			if !ok {
				fmt.Fprintln(out, "send ignored")
				continue
			}
			fmt.Fprintf(out, "sent text=%q audio=%t\n", m.Text, m.HasAudio())
		case "PLAY":
			if err := c.PlayCapture(ctx); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "played")
		case "READ":
			n, err := strconv.Atoi(arg)
			msgs := c.Messages()
			if err != nil || n < 1 || n > len(msgs) {
				fmt.Fprintln(out, "error: no such message")
				continue
			}
			if err := c.ReadMessage(msgs[n-1].ID); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "read %d\n", n)
		case "LIST":
			msgs := c.Messages()
			fmt.Fprintf(out, "messages: %d\n", len(msgs))
			for i, m := range msgs {
				fmt.Fprintf(out, "%d. text=%q audio=%t\n", i+1, m.Text, m.HasAudio())
			}
		case "SPOKEN":
			waitSpeech(a, 5*time.Second)
			fmt.Fprintf(out, "spoken: %s\n", strings.Join(spoken(), " | "))
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			return 0
		default:
			fmt.Fprintf(out, "error: unknown command %q\n", cmd)
		}
	}
	return 0
}

func waitSpeech(a *app, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for a.speaker.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}
