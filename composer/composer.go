// Package composer is the single surface the UI drives: it binds the
// session to dictation, speech playback and the clip recorder.
package composer

import (
	"context"
	"errors"
	"fmt"

	"voicemail/audio"
	"voicemail/dictation"
	"voicemail/log"
	"voicemail/recorder"
	"voicemail/session"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrMicBusy     = errors.New("microphone is busy")
	ErrNoMessage   = errors.New("no such message")
	ErrNoAudio     = errors.New("no recording to play")
)

const (
	phraseLoginOK   = "Login successful"
	phraseRecording = "Recording"
	phraseSaved     = "Recording saved"
	phraseSent      = "Message sent"
	phraseNoSpeech  = "No speech detected"
)

type Dictator interface {
	Dictate(ctx context.Context) (string, error)
	Stop()
	Busy() bool
}

type Recorder interface {
	Record(ctx context.Context) (*recorder.Clip, error)
	Recording() bool
}

type Speaker interface {
	Speak(text string)
}

// Cues are the short earcons played around microphone use.
type Cues interface {
	Start()
	End()
	Error()
}

type Options struct {
	// Announce speaks state changes and errors in addition to the login
	// confirmation, which is always spoken.
	Announce bool
	Cues     Cues
	Copy     func(text string) error
}

type Composer struct {
	sess    *session.Session
	dict    Dictator
	rec     Recorder
	speaker Speaker
	player  audio.Player
	opts    Options

	mic micLock
}

func New(sess *session.Session, dict Dictator, rec Recorder, speaker Speaker, player audio.Player, opts Options) *Composer {
	if opts.Cues == nil {
		opts.Cues = noCues{}
	}
	return &Composer{
		sess:    sess,
		dict:    dict,
		rec:     rec,
		speaker: speaker,
		player:  player,
		opts:    opts,
	}
}

func (c *Composer) Session() *session.Session { return c.sess }

func (c *Composer) Snapshot() session.Snapshot { return c.sess.Snapshot() }

func (c *Composer) announce(text string) {
	if c.opts.Announce {
		c.speaker.Speak(text)
	}
}

// Login opens the gate when both fields are set and speaks a confirmation
// the first time it succeeds. An empty field is a silent no-op.
func (c *Composer) Login(email, password string) bool {
	already := c.sess.LoggedIn()
	if !c.sess.Login(email, password) {
		return false
	}
	if !already {
		log.Login()
		c.speaker.Speak(phraseLoginOK)
	}
	return true
}

func (c *Composer) LoggedIn() bool { return c.sess.LoggedIn() }

func (c *Composer) SetDraft(text string) { c.sess.SetDraft(text) }

func (c *Composer) Draft() string { return c.sess.Draft() }

// Speak reads arbitrary text aloud without waiting for playback.
func (c *Composer) Speak(text string) { c.speaker.Speak(text) }

func (c *Composer) SpeakDraft() { c.speaker.Speak(c.sess.Draft()) }

func (c *Composer) Dictating() bool { return c.dict.Busy() }

func (c *Composer) Recording() bool { return c.rec.Recording() }

// fail reports err with the error cue and an announcement. Cancellation
// means the user is leaving, so it stays silent.
func (c *Composer) fail(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.opts.Cues.Error()
	if errors.Is(err, dictation.ErrNoSpeech) {
		c.announce(phraseNoSpeech)
	} else {
		c.announce(describe(err))
	}
	return err
}

// Dictate captures one utterance and overwrites the draft with its
// transcript. On any failure the draft is left untouched.
func (c *Composer) Dictate(ctx context.Context) (string, error) {
	if !c.sess.LoggedIn() {
		return "", ErrNotLoggedIn
	}
	if c.dict.Busy() {
		return "", dictation.ErrBusy
	}
	if !c.mic.acquire(micDictation) {
		return "", ErrMicBusy
	}
	defer c.mic.release()

	c.opts.Cues.Start()
	text, err := c.dict.Dictate(ctx)
	if err != nil {
		log.Warnf("dictation failed: %v", err)
		return "", c.fail(err)
	}
	c.opts.Cues.End()
	c.sess.SetDraft(text)
	return text, nil
}

// StopDictation ends a pending dictation early.
func (c *Composer) StopDictation() { c.dict.Stop() }

// Record captures one fixed-length clip and makes it the pending capture.
func (c *Composer) Record(ctx context.Context) (*recorder.Clip, error) {
	if !c.sess.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if c.rec.Recording() {
		return nil, recorder.ErrAlreadyRecording
	}
	if !c.mic.acquire(micRecording) {
		return nil, ErrMicBusy
	}
	defer c.mic.release()

	c.announce(phraseRecording)
	c.opts.Cues.Start()
	clip, err := c.rec.Record(ctx)
	if err != nil {
		log.Warnf("recording failed: %v", err)
		return nil, c.fail(err)
	}
	c.opts.Cues.End()
	c.sess.SetCapture(clip)
	c.announce(phraseSaved)
	return clip, nil
}

// Send appends the draft and pending capture as a message. It reports false
// and changes nothing when both are empty.
func (c *Composer) Send() (session.Message, bool) {
	m, ok := c.sess.Send()
	if !ok {
		return m, false
	}
	log.MessageSent(m.ID, len(m.Text), m.HasAudio())
	c.announce(phraseSent)
	return m, true
}

func (c *Composer) Messages() []session.Message { return c.sess.Messages() }

// ReadMessage speaks the text of a sent message.
func (c *Composer) ReadMessage(id int64) error {
	m, ok := c.sess.Message(id)
	if !ok {
		return ErrNoMessage
	}
	if m.Text == "" {
		c.speaker.Speak("Voice message")
		return nil
	}
	c.speaker.Speak(m.Text)
	return nil
}

// PlayMessage plays the clip attached to a sent message and blocks until it
// has drained.
func (c *Composer) PlayMessage(ctx context.Context, id int64) error {
	m, ok := c.sess.Message(id)
	if !ok {
		return ErrNoMessage
	}
	return c.play(ctx, m.Audio)
}

// PlayCapture plays the pending, not yet sent, recording.
func (c *Composer) PlayCapture(ctx context.Context) error {
	return c.play(ctx, c.sess.Capture())
}

func (c *Composer) play(ctx context.Context, clip *recorder.Clip) error {
	if clip == nil {
		return ErrNoAudio
	}
	pcm, err := clip.Samples()
	if err != nil {
		return err
	}
	if err := c.player.Play(ctx, pcm); err != nil {
		return fmt.Errorf("play clip %s: %w", clip.ID, err)
	}
	return nil
}

// CopyMessage puts a message's text on the system clipboard.
func (c *Composer) CopyMessage(id int64) error {
	m, ok := c.sess.Message(id)
	if !ok {
		return ErrNoMessage
	}
	if c.opts.Copy == nil {
		return errors.New("clipboard unavailable")
	}
	return c.opts.Copy(m.Text)
}

type noCues struct{}

func (noCues) Start() {}
func (noCues) End()   {}
func (noCues) Error() {}
