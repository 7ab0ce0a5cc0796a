package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"voicemail/audio"
	"voicemail/beep"
	"voicemail/clipboard"
	"voicemail/composer"
	"voicemail/config"
	"voicemail/dictation"
	"voicemail/log"
	"voicemail/recorder"
	"voicemail/session"
	"voicemail/speech"
	"voicemail/transcriber"
)

// app owns every adapter behind the composer and forwards their
// asynchronous events to whichever display is attached.
type app struct {
	cfg    *config.Config
	actx   audio.Context
	player audio.Player
	trans  transcriber.Transcriber
	synth  speech.Synthesizer

	speaker *speech.Speaker
	dict    *dictation.Dictator
	rec     *recorder.Recorder
	beeper  *beep.Beeper
	comp    *composer.Composer

	mu     sync.Mutex
	sink   EventSink
	device *audio.DeviceInfo
}

func newApp(cfg *config.Config, actx audio.Context, player audio.Player, trans transcriber.Transcriber, synth speech.Synthesizer, vad dictation.Detector, dev *audio.DeviceInfo) *app {
	a := &app{
		cfg:    cfg,
		actx:   actx,
		player: player,
		trans:  trans,
		synth:  synth,
		sink:   nopSink{},
		device: dev,
	}
	trans.SetLanguage(cfg.Language)

	a.speaker = speech.NewSpeaker(synth, player, func(err error) {
		log.Warnf("speech: %v", err)
		a.events().Notice("Speech output failed")
	})
	a.dict = dictation.New(actx, trans, dictation.Options{
		Language: cfg.Language,
		Device:   dev,
		Detector: vad,
		OnLevel:  a.level,
	})
	a.rec = recorder.New(actx, recorder.Options{
		Window:  cfg.RecordWindow,
		Device:  dev,
		OnLevel: a.level,
	})
	a.beeper = beep.New(player)
	if !cfg.Beep {
		a.beeper.Disable()
	}
	a.comp = composer.New(session.New(), a.dict, a.rec, a.speaker, player, composer.Options{
		Announce: cfg.Announce,
		Cues:     a.beeper,
		Copy:     clipboard.Copy,
	})
	return a
}

func (a *app) attach(s EventSink) {
	a.mu.Lock()
	a.sink = s
	a.mu.Unlock()
}

func (a *app) events() EventSink {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sink
}

func (a *app) level(rms float64) { a.events().AudioLevel(rms) }

func (a *app) Device() *audio.DeviceInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device
}

func (a *app) setDevice(dev *audio.DeviceInfo) {
	a.mu.Lock()
	a.device = dev
	a.mu.Unlock()
	a.dict.SetDevice(dev)
	a.rec.SetDevice(dev)
	log.Info("device_switch: " + deviceName(dev))
}

func deviceName(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "system default"
	}
	return dev.Name
}

func (a *app) dictate(ctx context.Context) (string, error) {
	text, err := a.comp.Dictate(ctx)
	if rejected(err) {
		return text, err
	}
	m := a.dict.LastMetrics()
	d := log.DictationData{
		Provider:     m.Provider,
		Language:     a.dict.Language(),
		End:          m.End.String(),
		AudioS:       m.Captured.Seconds(),
		VoicedFrames: m.VoicedFrames,
		Frames:       m.Frames,
		TextLen:      len(text),
		NoSpeech:     m.Result.NoSpeech || m.End == dictation.EndNoSpeech,
		TotalMs:      float64(m.Elapsed) / float64(time.Millisecond),
	}
	if b := m.Result.Batch; b != nil {
		d.ConnReused = b.ConnReused
		d.TLSProtocol = b.TLSProtocol
	}
	log.DictationMetrics(d)
	return text, err
}

// rejected reports errors returned before the microphone was opened.
func rejected(err error) bool {
	return errors.Is(err, composer.ErrNotLoggedIn) ||
		errors.Is(err, composer.ErrMicBusy) ||
		errors.Is(err, dictation.ErrBusy) ||
		errors.Is(err, recorder.ErrAlreadyRecording)
}

func (a *app) record(ctx context.Context) (*recorder.Clip, error) {
	clip, err := a.comp.Record(ctx)
	if err != nil {
		return nil, err
	}
	m := a.rec.LastMetrics()
	log.RecordingMetrics(log.RecordingData{
		WindowMs:   float64(m.Window) / float64(time.Millisecond),
		CapturedMs: float64(m.Captured) / float64(time.Millisecond),
		Samples:    m.Samples,
		FlacKB:     float64(m.FlacBytes) / 1024,
		EncodeMs:   float64(m.EncodeTime) / float64(time.Millisecond),
		PeakRMS:    m.CaptureRMS,
		Device:     m.DeviceName,
	})
	return clip, nil
}

// close releases the adapters in reverse order of creation.
func (a *app) close() {
	a.dict.Stop()
	a.speaker.Close()
	a.player.Close()
	a.actx.Close()
}
