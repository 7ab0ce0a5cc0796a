// Package doctor walks the user through the hardware and provider checks
// the composer depends on.
package doctor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"voicemail/audio"
	"voicemail/clipboard"
	"voicemail/dictation"
	"voicemail/hotkey"
	"voicemail/recorder"
	"voicemail/speech"
	"voicemail/transcriber"
)

const (
	defaultWindow = 3 * time.Second
	hotkeyTimeout = 10 * time.Second
	silentRMS     = 0.002
	testPhrase    = "Voicemail doctor. If you can hear this, speech works."
	clipboardText = "voicemail-doctor-test"
)

// Deps are built by the caller from the same config the composer uses.
// Nil Synth or Trans fail their check with the matching Err.
type Deps struct {
	Audio    audio.Context
	Player   audio.Player
	Device   *audio.DeviceInfo
	Synth    speech.Synthesizer
	SynthErr error
	Trans    transcriber.Transcriber
	TransErr error
	Language string
	VAD      dictation.Detector // nil uses the WebRTC VAD
	Hotkey   hotkey.Hotkey      // nil skips the hotkey check
	Window   time.Duration

	In  io.Reader
	Out io.Writer
}

type check struct {
	name string
	run  func(*doctor) bool
}

type doctor struct {
	Deps
	in *bufio.Reader
}

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(d Deps) int {
	resetTerminal()
	setupInterruptHandler()
	return run(d)
}

func run(deps Deps) int {
	if deps.Window <= 0 {
		deps.Window = defaultWindow
	}
	d := &doctor{Deps: deps, in: bufio.NewReader(deps.In)}

	checks := []check{
		{"Hotkey detection", (*doctor).checkHotkey},
		{"Microphone", (*doctor).checkMicrophone},
		{"Speech synthesis", (*doctor).checkSpeech},
		{"Dictation", (*doctor).checkDictation},
		{"Clipboard", (*doctor).checkClipboard},
	}

	d.println("voicemail doctor - interactive system diagnostics")
	d.println("=================================================")

	allPass := true
	for i, c := range checks {
		d.println()
		d.printf("[%d/%d] %s\n", i+1, len(checks), c.name)
		if !c.run(d) {
			allPass = false
		}
	}

	d.println()
	if allPass {
		d.println("All checks passed!")
		return 0
	}
	d.println("Some checks failed. See details above.")
	return 1
}

func (d *doctor) println(a ...any)               { fmt.Fprintln(d.Out, a...) }
func (d *doctor) printf(format string, a ...any) { fmt.Fprintf(d.Out, format, a...) }

func (d *doctor) pass(msg string) bool {
	d.printf("  PASS: %s\n", msg)
	return true
}

func (d *doctor) fail(format string, a ...any) bool {
	d.printf("  FAIL: "+format+"\n", a...)
	return false
}

func (d *doctor) ask(prompt string) string {
	d.printf("%s", prompt)
	line, _ := d.in.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(line))
}

func (d *doctor) confirm(prompt string) bool {
	a := d.ask(prompt + " [y/n]: ")
	return a == "y" || a == "yes"
}

func (d *doctor) checkHotkey() bool {
	if d.Hotkey == nil {
		d.println("  SKIP: hotkey disabled")
		return true
	}
	d.printf("Press %s...\n", hotkey.Combo)

	if err := d.Hotkey.Register(); err != nil {
		return d.fail("could not register hotkey: %v", err)
	}
	defer d.Hotkey.Unregister()

	select {
	case <-d.Hotkey.Keydown():
		select {
		case <-d.Hotkey.Keyup():
		case <-time.After(5 * time.Second):
		}
		// The listener may leave the terminal in raw mode.
		resetTerminal()
		return d.pass("hotkey detected")
	case <-time.After(hotkeyTimeout):
		return d.fail("timeout waiting for hotkey")
	}
}

func (d *doctor) checkMicrophone() bool {
	d.ask(fmt.Sprintf("Press Enter and speak for %s...", d.Window))

	rec := recorder.New(d.Audio, recorder.Options{Window: d.Window, Device: d.Device})
	clip, err := rec.Record(context.Background())
	if err != nil {
		return d.fail("recording error: %v", err)
	}
	m := rec.LastMetrics()
	d.printf("  Recorded %.1fs from %s, %.1f KB FLAC, peak level %.3f\n",
		clip.Duration.Seconds(), m.DeviceName, float64(clip.Size())/1024, m.CaptureRMS)
	if m.CaptureRMS < silentRMS {
		return d.fail("microphone delivered silence (muted or wrong device?)")
	}

	if d.Player != nil {
		pcm, err := clip.Samples()
		if err != nil {
			return d.fail("decode error: %v", err)
		}
		d.println("  Playing it back...")
		if err := d.Player.Play(context.Background(), pcm); err != nil {
			return d.fail("playback error: %v", err)
		}
		if !d.confirm("Did you hear your recording?") {
			return d.fail("playback not confirmed")
		}
	}
	return d.pass("microphone verified")
}

func (d *doctor) checkSpeech() bool {
	if d.Synth == nil {
		return d.fail("%v", orDefault(d.SynthErr, speech.ErrNoSynthesizer))
	}
	if d.Player == nil {
		return d.fail("no audio output")
	}
	d.printf("  Using %s\n", d.Synth.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pcm, err := d.Synth.Synthesize(ctx, testPhrase)
	if err != nil {
		return d.fail("synthesis error: %v", err)
	}
	if err := d.Player.Play(ctx, pcm); err != nil {
		return d.fail("playback error: %v", err)
	}
	if !d.confirm("Did you hear the test phrase?") {
		return d.fail("speech not confirmed")
	}
	return d.pass("speech synthesis verified")
}

func (d *doctor) checkDictation() bool {
	if d.Trans == nil {
		return d.fail("%v", orDefault(d.TransErr, transcriber.ErrNoProvider))
	}
	d.printf("  Using %s\n", d.Trans.Name())
	d.ask("Press Enter, say a short sentence, then pause...")

	dict := dictation.New(d.Audio, d.Trans, dictation.Options{Language: d.Language, Device: d.Device, Detector: d.VAD})
	text, err := dict.Dictate(context.Background())
	switch {
	case errors.Is(err, dictation.ErrNoSpeech):
		return d.fail("no speech detected")
	case err != nil:
		return d.fail("dictation error: %v", err)
	}

	d.printf("\n  Transcribed text: %s\n\n", text)
	if !d.confirm("Is this correct?") {
		return d.fail("transcription not confirmed")
	}
	return d.pass("transcription verified by user")
}

func (d *doctor) checkClipboard() bool {
	if !clipboard.Available() {
		d.println("  SKIP: no clipboard backend (install xclip, xsel or wl-clipboard)")
		return true
	}
	prev, _ := clipboard.Read()
	defer clipboard.Copy(prev)

	if err := clipboard.Copy(clipboardText); err != nil {
		return d.fail("copy failed: %v", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return d.fail("read failed: %v", err)
	}
	if got != clipboardText {
		return d.fail("clipboard returned %q, want %q", got, clipboardText)
	}
	return d.pass("clipboard round trip")
}

func orDefault(err, def error) error {
	if err != nil {
		return err
	}
	return def
}
