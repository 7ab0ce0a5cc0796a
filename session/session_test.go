package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voicemail/recorder"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLogin(t *testing.T) {
	for _, tt := range []struct {
		name     string
		email    string
		password string
		want     bool
	}{
		{"both set", "a@b.com", "pw", true},
		{"any text is an email", "not-an-email", "x", true},
		{"empty email", "", "pw", false},
		{"empty password", "a@b.com", "", false},
		{"both empty", "", "", false},
		{"whitespace email", "   ", "pw", true},
		{"whitespace password", "a@b.com", "\t", true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			require.Equal(t, tt.want, s.Login(tt.email, tt.password))
			require.Equal(t, tt.want, s.LoggedIn())
		})
	}
}

func TestLoginNeverResets(t *testing.T) {
	s := New()
	require.True(t, s.Login("a@b.com", "pw"))
	require.True(t, s.Login("", ""))
	require.True(t, s.Login("c@d.com", ""))
	require.True(t, s.Login("c@d.com", "pw2"))
	require.True(t, s.LoggedIn())
	require.Equal(t, "a@b.com", s.Snapshot().Email)
}

func TestSendEmptyIsNoop(t *testing.T) {
	s := New()
	m, ok := s.Send()
	require.False(t, ok)
	require.Zero(t, m)
	require.Zero(t, s.Count())
}

func TestSendText(t *testing.T) {
	s := New()
	s.SetDraft("hello")

	m, ok := s.Send()
	require.True(t, ok)
	require.Equal(t, "hello", m.Text)
	require.Nil(t, m.Audio)
	require.False(t, m.HasAudio())
	require.Equal(t, "", s.Draft())
	require.Equal(t, []Message{m}, s.Messages())
}

func TestSendAudioOnly(t *testing.T) {
	s := New()
	clip := &recorder.Clip{ID: "clip-1"}
	s.SetCapture(clip)

	m, ok := s.Send()
	require.True(t, ok)
	require.Equal(t, "", m.Text)
	require.Same(t, clip, m.Audio)
	require.Nil(t, s.Capture())
}

func TestSendTextAndAudio(t *testing.T) {
	s := New()
	clip := &recorder.Clip{ID: "clip-1"}
	s.SetDraft("listen to this")
	s.SetCapture(clip)

	m, ok := s.Send()
	require.True(t, ok)
	require.Equal(t, "listen to this", m.Text)
	require.Same(t, clip, m.Audio)

	snap := s.Snapshot()
	require.Empty(t, snap.Draft)
	require.Nil(t, snap.Capture)
	require.Len(t, snap.Messages, 1)
}

func TestMessageOrderAndIDs(t *testing.T) {
	s := New()
	now := time.UnixMilli(1_700_000_000_000)
	s.now = fixedClock(now)

	s.SetDraft("M1")
	m1, _ := s.Send()
	s.SetDraft("M2")
	m2, _ := s.Send()

	require.Equal(t, now.UnixMilli(), m1.ID)
	require.Equal(t, m1.ID+1, m2.ID, "same-millisecond sends must still get distinct ids")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "M1", msgs[0].Text)
	require.Equal(t, "M2", msgs[1].Text)

	got, ok := s.Message(m2.ID)
	require.True(t, ok)
	require.Equal(t, m2, got)
	_, ok = s.Message(42)
	require.False(t, ok)
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New()
	s.SetDraft("original")
	s.Send()

	msgs := s.Messages()
	msgs[0].Text = "tampered"
	msgs = append(msgs, Message{Text: "extra"})

	require.Equal(t, "original", s.Messages()[0].Text)
	require.Equal(t, 1, s.Count())
}

func TestConcurrentSends(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetDraft("x")
			s.Send()
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, m := range s.Messages() {
		require.False(t, seen[m.ID], "duplicate id %d", m.ID)
		seen[m.ID] = true
	}
}
