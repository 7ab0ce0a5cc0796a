package speech

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voicemail/audio"
)

func TestSpeakerPlaysUtterance(t *testing.T) {
	synth := NewFake()
	player := audio.NewFakePlayer(0, nil)
	s := NewSpeaker(synth, player, nil)
	defer s.Close()

	s.Speak("Login successful")

	require.Eventually(t, func() bool { return len(player.Played()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"Login successful"}, synth.Texts())
	require.Eventually(t, func() bool { return !s.Busy() }, time.Second, 5*time.Millisecond)
}

func TestSpeakerIgnoresBlankText(t *testing.T) {
	synth := NewFake()
	s := NewSpeaker(synth, audio.NewFakePlayer(0, nil), nil)
	defer s.Close()

	s.Speak("")
	s.Speak("   \n")
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, synth.Texts())
	require.False(t, s.Busy())
}

func TestSpeakerLatestPendingWins(t *testing.T) {
	synth := NewFake()
	synth.Delay = 80 * time.Millisecond
	player := audio.NewFakePlayer(0, nil)
	s := NewSpeaker(synth, player, nil)
	defer s.Close()

	s.Speak("first")
	require.Eventually(t, func() bool { return len(synth.Texts()) == 1 }, time.Second, time.Millisecond)

	s.Speak("second")
	s.Speak("third")

	require.Eventually(t, func() bool { return len(player.Played()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"first", "third"}, synth.Texts())
}

func TestSpeakerReportsErrors(t *testing.T) {
	synth := NewFake()
	synth.Err = errors.New("engine missing")

	var mu sync.Mutex
	var got []error
	s := NewSpeaker(synth, audio.NewFakePlayer(0, nil), func(err error) {
		mu.Lock()
		got = append(got, err)
		mu.Unlock()
	})
	defer s.Close()

	s.Speak("hello")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	require.ErrorIs(t, got[0], synth.Err)
	mu.Unlock()
}

func TestSpeakerReportsPlaybackErrors(t *testing.T) {
	boom := errors.New("no output device")
	errs := make(chan error, 1)
	s := NewSpeaker(NewFake(), audio.NewFakePlayer(0, boom), func(err error) { errs <- err })
	defer s.Close()

	s.Speak("hello")
	select {
	case err := <-errs:
		require.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
}

func TestSpeakerCloseInterruptsPlayback(t *testing.T) {
	player := audio.NewFakePlayer(time.Hour, nil)
	s := NewSpeaker(NewFake(), player, func(err error) { t.Errorf("unexpected error: %v", err) })
	s.Speak("a very long story")
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	require.Empty(t, player.Played())
}

func TestNewSelectsProvider(t *testing.T) {
	s, err := New("openai", Options{OpenAIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "openai", s.Name())

	s, err = New("auto", Options{OpenAIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "openai", s.Name())

	_, err = New("openai", Options{})
	require.Error(t, err)

	_, err = New("festival-3000", Options{})
	require.Error(t, err)

	_, err = New("command", Options{Command: "definitely-not-a-tts-binary"})
	require.ErrorIs(t, err, ErrNoSynthesizer)
}

func TestCommandName(t *testing.T) {
	require.Equal(t, "espeak-ng", NewCommand("/usr/bin/espeak-ng", "").Name())
	require.Equal(t, "say", NewCommand("/usr/bin/say", "Alex").Name())
}
