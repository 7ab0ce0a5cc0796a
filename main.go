package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voicemail/audio"
	"voicemail/config"
	"voicemail/doctor"
	"voicemail/hotkey"
	"voicemail/log"
	"voicemail/shutdown"
	"voicemail/speech"
	"voicemail/transcriber"
)

var version = "dev"

type cliFlags struct {
	fs *flag.FlagSet

	config   string
	stt      string
	tts      string
	lang     string
	device   string
	setup    bool
	window   time.Duration
	logPath  string
	hotkey   bool
	announce bool
	noBeep   bool
	doctor   bool
	version  bool
	test     bool
}

func parseFlags(args []string, errOut io.Writer) (*cliFlags, error) {
	f := &cliFlags{fs: flag.NewFlagSet("voicemail", flag.ContinueOnError)}
	fs := f.fs
	fs.SetOutput(errOut)
	fs.StringVar(&f.config, "config", "", "Config file (default: ./voicemail.yaml or the user config dir)")
	fs.StringVar(&f.stt, "stt", "", "Transcription provider: groq, openai or auto")
	fs.StringVar(&f.tts, "tts", "", "Speech synthesizer: openai, command or auto")
	fs.StringVar(&f.lang, "lang", "", "Language code for dictation (e.g., en, es, fr)")
	fs.StringVar(&f.device, "device", "", "Use named microphone device")
	fs.BoolVar(&f.setup, "setup", false, "Select microphone device interactively")
	fs.DurationVar(&f.window, "window", 0, "Length of a voice recording (e.g., 5s)")
	fs.StringVar(&f.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.BoolVar(&f.hotkey, "hotkey", true, "Listen for the global "+hotkey.Combo+" record shortcut")
	fs.BoolVar(&f.announce, "announce", true, "Speak state changes and errors aloud")
	fs.BoolVar(&f.noBeep, "nobeep", false, "Disable start/end beeps")
	fs.BoolVar(&f.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	fs.BoolVar(&f.test, "test", false, "Test mode (headless, stdin-driven)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply overrides cfg with the flags given on the command line; unset flags
// leave file and environment values alone.
func (f *cliFlags) apply(cfg *config.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "stt":
			cfg.STT = f.stt
		case "tts":
			cfg.TTS = f.tts
		case "lang":
			cfg.Language = f.lang
		case "device":
			cfg.Device = f.device
		case "window":
			cfg.RecordWindow = f.window
		case "logpath":
			cfg.LogPath = f.logPath
		case "hotkey":
			cfg.Hotkey = f.hotkey
		case "announce":
			cfg.Announce = f.announce
		case "nobeep":
			cfg.Beep = !f.noBeep
		}
	})
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	log.Close()
	os.Exit(1)
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func loadConfig(f *cliFlags) (*config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func keys(cfg *config.Config) transcriber.Keys {
	return transcriber.Keys{Groq: cfg.GroqAPIKey, OpenAI: cfg.OpenAIAPIKey}
}

func speechOptions(cfg *config.Config) speech.Options {
	return speech.Options{OpenAIKey: cfg.OpenAIAPIKey, Command: cfg.TTSCommand, Voice: cfg.TTSVoice}
}

func run() {
	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if f.version {
		fmt.Printf("voicemail %s\n", version)
		os.Exit(0)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Resolve log directory early
	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	if cfg.File != "" {
		log.Info("config: " + cfg.File)
	}

	if f.test {
		args := f.fs.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: voicemail -test <wav-file> < script")
			os.Exit(1)
		}
		os.Exit(runTestMode(cfg, args[0], os.Stdin, os.Stdout))
	}

	actx, err := audio.NewContext()
	if err != nil {
		fatalf("initializing audio context: %v", err)
	}

	var device *audio.DeviceInfo
	switch {
	case cfg.Device != "":
		device, err = audio.FindDevice(actx, cfg.Device)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: %v, using system default\n", err)
		}
	case f.setup:
		device, err = audio.SelectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintln(os.Stderr, "Falling back to default device")
		}
	}

	player, err := audio.NewPlayer()
	if err != nil {
		fatalf("initializing audio output: %v", err)
	}

	trans, transErr := transcriber.New(cfg.STT, keys(cfg))
	synth, synthErr := speech.New(cfg.TTS, speechOptions(cfg))

	if f.doctor {
		var hk hotkey.Hotkey
		if cfg.Hotkey {
			hk = hotkey.New()
		}
		code := doctor.Run(doctor.Deps{
			Audio:    actx,
			Player:   player,
			Device:   device,
			Synth:    synth,
			SynthErr: synthErr,
			Trans:    trans,
			TransErr: transErr,
			Language: cfg.Language,
			Hotkey:   hk,
			In:       os.Stdin,
			Out:      os.Stdout,
		})
		player.Close()
		actx.Close()
		log.Close()
		os.Exit(code)
	}

	if transErr != nil {
		fatalf("%v", transErr)
	}
	if synthErr != nil {
		fatalf("%v", synthErr)
	}

	a := newApp(cfg, actx, player, trans, synth, nil, device)
	log.SessionStart(trans.Name(), synth.Name(), cfg.Language)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(newModel(ctx, a), tea.WithAltScreen())
	a.attach(tuiSink{p})

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
			p.Quit()
		case <-ctx.Done():
		}
	}()

	if cfg.Hotkey {
		hk := hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("hotkey register error: %v", err)
			a.events().Notice("Global hotkey unavailable")
		} else {
			defer hk.Unregister()
			go hotkey.Presses(hk, ctx.Done(), func() { p.Send(hotkeyMsg{}) })
		}
	}

	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
	}
	cancel()
	log.SessionEnd(a.comp.Session().Count())
	a.close()
}
