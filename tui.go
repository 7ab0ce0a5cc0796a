package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voicemail/audio"
	"voicemail/composer"
	"voicemail/hotkey"
	"voicemail/session"
)

// TUI message types
type levelMsg struct{ Level float64 }
type noticeMsg struct{ Text string }
type hotkeyMsg struct{}
type dictateDoneMsg struct {
	Text string
	Err  error
}
type recordDoneMsg struct{ Err error }
type playDoneMsg struct{ Err error }
type deviceMsg struct {
	Device *audio.DeviceInfo
	Err    error
}
type tickMsg time.Time

type screen int

const (
	screenLogin screen = iota
	screenCompose
)

const (
	fieldEmail = iota
	fieldPassword
)

type tuiModel struct {
	ctx context.Context
	app *app

	screen   screen
	email    string
	password string
	field    int

	status    string
	dictating bool
	recording bool
	playing   bool
	recStart  time.Time
	level     float64
	peak      float64
	selected  int // index into the message list, -1 when empty
	width     int
}

// view is everything render needs besides the session snapshot.
type view struct {
	screen    screen
	email     string
	password  string
	field     int
	status    string
	dictating bool
	recording bool
	remaining time.Duration
	level     float64
	peak      float64
	selected  int
	width     int
	device    string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	listenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("24"))
	voiceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
)

type tuiSink struct{ p *tea.Program }

func (s tuiSink) AudioLevel(level float64) { s.p.Send(levelMsg{Level: level}) }

// Notice may be raised before the program loop starts, so it never blocks.
func (s tuiSink) Notice(text string) { go s.p.Send(noticeMsg{Text: text}) }

func newModel(ctx context.Context, a *app) tuiModel {
	return tuiModel{ctx: ctx, app: a, selected: -1}
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateCompose(msg)

	case tickMsg:
		if m.recording || m.dictating {
			return m, tuiTick()
		}

	case levelMsg:
		if m.recording || m.dictating {
			m.level = m.level*0.6 + msg.Level*0.4
			m.peak = max(m.peak, msg.Level)
		}

	case noticeMsg:
		m.status = msg.Text

	case hotkeyMsg:
		if m.screen == screenCompose {
			return m.startRecord()
		}

	case dictateDoneMsg:
		m.dictating = false
		m.level = 0
		switch {
		case msg.Err == nil:
			m.status = "Dictation added to draft"
		case errors.Is(msg.Err, context.Canceled):
			m.status = ""
		default:
			m.status = composer.Describe(msg.Err)
		}

	case recordDoneMsg:
		m.recording = false
		m.level = 0
		switch {
		case msg.Err == nil:
			m.status = "Recording saved (ctrl+p to play, enter to send)"
		case errors.Is(msg.Err, context.Canceled):
			m.status = ""
		default:
			m.status = composer.Describe(msg.Err)
		}

	case playDoneMsg:
		m.playing = false
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.status = describePlay(msg.Err)
		}

	case deviceMsg:
		switch {
		case errors.Is(msg.Err, audio.ErrSelectionAborted):
		case msg.Err != nil:
			m.status = "Device selection failed"
		case msg.Device != nil:
			m.app.setDevice(msg.Device)
			m.status = "Microphone: " + msg.Device.Name
		}
	}
	return m, nil
}

func describePlay(err error) string {
	switch {
	case errors.Is(err, composer.ErrNoAudio):
		return "No recording to play"
	case errors.Is(err, composer.ErrNoMessage):
		return "No message selected"
	default:
		return "Playback failed"
	}
}

func editText(s string, msg tea.KeyMsg) (string, bool) {
	switch msg.Type {
	case tea.KeyBackspace:
		if r := []rune(s); len(r) > 0 {
			return string(r[:len(r)-1]), true
		}
		return s, true
	case tea.KeySpace:
		return s + " ", true
	case tea.KeyRunes:
		return s + string(msg.Runes), true
	}
	return s, false
}

func (m tuiModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.field = 1 - m.field
		return m, nil
	case "enter":
		if m.field == fieldEmail {
			m.field = fieldPassword
			return m, nil
		}
		// Empty fields are a silent no-op.
		if m.app.comp.Login(m.email, m.password) {
			m.screen = screenCompose
			m.password = ""
			m.status = "Logged in"
		}
		return m, nil
	}

	if m.field == fieldEmail {
		m.email, _ = editText(m.email, msg)
	} else {
		m.password, _ = editText(m.password, msg)
	}
	return m, nil
}

func (m tuiModel) updateCompose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.app.comp
	switch msg.String() {
	case "enter":
		if _, ok := c.Send(); ok {
			m.selected = c.Session().Count() - 1
			m.status = "Message sent"
		}
		return m, nil
	case "ctrl+d":
		if m.dictating {
			return m, nil
		}
		m.dictating = true
		m.level, m.peak = 0, 0
		m.status = "Listening... (esc to stop)"
		ctx := m.ctx
		return m, tea.Batch(tuiTick(), func() tea.Msg {
			text, err := m.app.dictate(ctx)
			return dictateDoneMsg{Text: text, Err: err}
		})
	case "esc":
		if m.dictating {
			c.StopDictation()
		}
		return m, nil
	case "ctrl+t":
		c.SpeakDraft()
		return m, nil
	case "ctrl+r":
		return m.startRecord()
	case "ctrl+p":
		return m.play(func(ctx context.Context) error { return c.PlayCapture(ctx) })
	case "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil
	case "down":
		if m.selected < c.Session().Count()-1 {
			m.selected++
		}
		return m, nil
	case "ctrl+l":
		if id, ok := m.selectedID(); ok {
			if err := c.ReadMessage(id); err != nil {
				m.status = describePlay(err)
			} else {
				m.status = "Reading message"
			}
		}
		return m, nil
	case "ctrl+o":
		id, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		return m.play(func(ctx context.Context) error { return c.PlayMessage(ctx, id) })
	case "ctrl+y":
		if id, ok := m.selectedID(); ok {
			if err := c.CopyMessage(id); err != nil {
				m.status = "Copy failed"
			} else {
				m.status = "Copied to clipboard"
			}
		}
		return m, nil
	case "ctrl+g":
		if m.recording || m.dictating {
			return m, nil
		}
		picker := &devicePicker{actx: m.app.actx}
		return m, tea.Exec(picker, func(err error) tea.Msg {
			return deviceMsg{Device: picker.dev, Err: err}
		})
	}

	if draft, ok := editText(c.Draft(), msg); ok {
		c.SetDraft(draft)
	}
	return m, nil
}

func (m tuiModel) startRecord() (tea.Model, tea.Cmd) {
	if m.recording {
		return m, nil
	}
	if m.dictating {
		m.status = composer.Describe(composer.ErrMicBusy)
		return m, nil
	}
	m.recording = true
	m.recStart = time.Now()
	m.level, m.peak = 0, 0
	m.status = ""
	ctx := m.ctx
	return m, tea.Batch(tuiTick(), func() tea.Msg {
		_, err := m.app.record(ctx)
		return recordDoneMsg{Err: err}
	})
}

func (m tuiModel) play(fn func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.playing {
		return m, nil
	}
	m.playing = true
	ctx := m.ctx
	return m, func() tea.Msg { return playDoneMsg{Err: fn(ctx)} }
}

func (m tuiModel) selectedID() (int64, bool) {
	msgs := m.app.comp.Messages()
	if m.selected < 0 || m.selected >= len(msgs) {
		return 0, false
	}
	return msgs[m.selected].ID, true
}

func (m tuiModel) View() string {
	v := view{
		screen:    m.screen,
		email:     m.email,
		password:  m.password,
		field:     m.field,
		status:    m.status,
		dictating: m.dictating,
		recording: m.recording,
		level:     m.level,
		peak:      m.peak,
		selected:  m.selected,
		width:     m.width,
		device:    deviceName(m.app.Device()),
	}
	if m.recording {
		v.remaining = max(m.app.cfg.RecordWindow-time.Since(m.recStart), 0)
	}
	return render(m.app.comp.Snapshot(), v)
}

// devicePicker runs the raw-mode device picker while bubbletea has
// released the terminal.
type devicePicker struct {
	actx audio.Context
	dev  *audio.DeviceInfo
}

func (d *devicePicker) Run() error {
	dev, err := audio.SelectDevice(d.actx)
	d.dev = dev
	return err
}

func (d *devicePicker) SetStdin(io.Reader)  {}
func (d *devicePicker) SetStdout(io.Writer) {}
func (d *devicePicker) SetStderr(io.Writer) {}

// render draws the whole screen from a snapshot; it has no side effects.
func render(s session.Snapshot, v view) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("voicemail") + "\n\n")

	if !s.LoggedIn {
		renderLogin(&b, v)
	} else {
		renderCompose(&b, s, v)
	}

	if v.status != "" {
		b.WriteString("\n" + statusStyle.Render(v.status) + "\n")
	}
	return b.String()
}

func field(label, value string, focused bool) string {
	marker := "  "
	style := labelStyle
	if focused {
		marker = focusStyle.Render("▶ ")
		style = focusStyle
		value += "█"
	}
	return marker + style.Render(label) + " " + value + "\n"
}

func renderLogin(b *strings.Builder, v view) {
	b.WriteString(field("Email:   ", v.email, v.field == fieldEmail))
	b.WriteString(field("Password:", strings.Repeat("*", len([]rune(v.password))), v.field == fieldPassword))
	b.WriteString("\n")
	b.WriteString(help("tab", "switch field", "enter", "log in", "ctrl+c", "quit"))
}

func levelBar(level float64, width int) string {
	n := min(int(level*float64(width)*8), width)
	return strings.Repeat("▮", n) + strings.Repeat("▯", width-n)
}

func renderCompose(b *strings.Builder, s session.Snapshot, v view) {
	wrapWidth := max(v.width-4, 20)

	b.WriteString(labelStyle.Render("Message:") + "\n")
	for _, line := range wrapText(s.Draft+"█", wrapWidth) {
		b.WriteString("  " + line + "\n")
	}
	if s.Capture != nil {
		b.WriteString(voiceStyle.Render(fmt.Sprintf("  ♪ voice clip %.1fs attached", s.Capture.Duration.Seconds())) + "\n")
	}
	b.WriteString("\n")

	switch {
	case v.recording:
		b.WriteString(recStyle.Render(fmt.Sprintf("● REC %.1fs left", v.remaining.Seconds())) + " " + levelBar(v.level, 20) + "\n")
	case v.dictating:
		b.WriteString(listenStyle.Render("◉ LISTENING") + " " + levelBar(v.level, 20) + "\n")
	}
	if (v.recording || v.dictating) && v.peak > 0 && v.peak < 0.02 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("  ⚠ no voice detected") + "\n")
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("Messages (%d):", len(s.Messages))) + "\n")
	if len(s.Messages) == 0 {
		b.WriteString(dimStyle.Render("  none yet") + "\n")
	}
	for i, msg := range s.Messages {
		b.WriteString(renderMessage(i, msg, i == v.selected, wrapWidth))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("mic: "+v.device+" (ctrl+g)") + "\n")
	b.WriteString(help("enter", "send", "ctrl+d", "dictate", "ctrl+r", "record", "ctrl+t", "speak draft", "ctrl+p", "play clip"))
	b.WriteString(help("↑/↓", "select", "ctrl+l", "read", "ctrl+o", "play", "ctrl+y", "copy", hotkey.Combo, "record anywhere"))
}

func renderMessage(i int, msg session.Message, selected bool, width int) string {
	head := fmt.Sprintf("%2d. %s", i+1, msg.CreatedAt.Format("15:04:05"))
	if msg.HasAudio() {
		head += voiceStyle.Render(fmt.Sprintf(" ♪ %.1fs", msg.Audio.Duration.Seconds()))
	}
	lines := []string{head}
	if msg.Text != "" {
		for _, l := range wrapText(msg.Text, width-4) {
			lines = append(lines, "    "+l)
		}
	}
	var b strings.Builder
	for _, l := range lines {
		if selected {
			l = selectedStyle.Render(l)
		}
		b.WriteString(l + "\n")
	}
	return b.String()
}

func help(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, helpKeyStyle.Render(pairs[i])+helpStyle.Render(" "+pairs[i+1]))
	}
	return strings.Join(parts, helpStyle.Render("  ")) + "\n"
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	r := []rune(text)
	for len(r) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if r[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(r[:splitAt]))
		r = []rune(strings.TrimLeft(string(r[splitAt:]), " "))
	}
	if len(r) > 0 {
		lines = append(lines, string(r))
	}
	return lines
}
