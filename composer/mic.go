package composer

import (
	"errors"
	"sync"

	"voicemail/audio"
	"voicemail/dictation"
	"voicemail/recorder"
)

type micUser int

const (
	micFree micUser = iota
	micDictation
	micRecording
)

// micLock gives dictation and recording exclusive use of the microphone.
type micLock struct {
	mu    sync.Mutex
	owner micUser
}

func (l *micLock) acquire(u micUser) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != micFree {
		return false
	}
	l.owner = u
	return true
}

func (l *micLock) release() {
	l.mu.Lock()
	l.owner = micFree
	l.mu.Unlock()
}

func (l *micLock) holder() micUser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

// describe turns an error into a short sentence suitable for speaking.
func describe(err error) string {
	switch {
	case errors.Is(err, audio.ErrCaptureUnavailable):
		return "Microphone unavailable"
	case errors.Is(err, dictation.ErrNoSpeech):
		return "No speech detected"
	case errors.Is(err, dictation.ErrBusy), errors.Is(err, recorder.ErrAlreadyRecording), errors.Is(err, ErrMicBusy):
		return "Microphone is busy"
	case errors.Is(err, ErrNotLoggedIn):
		return "Please log in first"
	default:
		return "Something went wrong"
	}
}

// Describe is the user-facing wording for errors returned by the composer.
func Describe(err error) string { return describe(err) }
