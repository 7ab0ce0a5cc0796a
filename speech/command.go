package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"voicemail/audio"
)

// Command synthesizes with a local engine that can emit WAV: espeak-ng and
// espeak write it to stdout, macOS say writes it to a file.
type Command struct {
	path  string
	voice string
}

func NewCommand(path, voice string) *Command {
	return &Command{path: path, voice: voice}
}

func (c *Command) Name() string { return filepath.Base(c.path) }

func (c *Command) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	if c.Name() == "say" {
		return c.synthesizeToFile(ctx, text)
	}

	args := []string{"--stdout"}
	if c.voice != "" {
		args = append(args, "-v", c.voice)
	}
	args = append(args, "--", text)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return audio.PCM{}, fmt.Errorf("%s: %w: %s", c.Name(), err, bytes.TrimSpace(stderr.Bytes()))
	}
	return audio.ParseWAV(stdout.Bytes())
}

func (c *Command) synthesizeToFile(ctx context.Context, text string) (audio.PCM, error) {
	f, err := os.CreateTemp("", "voicemail-say-*.wav")
	if err != nil {
		return audio.PCM{}, err
	}
	name := f.Name()
	f.Close()
	defer os.Remove(name)

	args := []string{"-o", name, "--file-format=WAVE", "--data-format=LEI16@22050"}
	if c.voice != "" {
		args = append(args, "-v", c.voice)
	}
	args = append(args, "--", text)

	if out, err := exec.CommandContext(ctx, c.path, args...).CombinedOutput(); err != nil {
		return audio.PCM{}, fmt.Errorf("say: %w: %s", err, bytes.TrimSpace(out))
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return audio.PCM{}, err
	}
	return audio.ParseWAV(data)
}
