package chime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// Player plays the chime once. Play blocks until playback finished or ctx
// is done.
type Player interface {
	Play(ctx context.Context) error
}

// Player modes accepted by NewPlayer.
const (
	ModeDevice  = "device"
	ModeCommand = "command"
	ModeNone    = "none"
)

// NewPlayer builds the player for mode. dir receives the generated WAV file
// for command playback; command may be empty to use the platform default.
func NewPlayer(mode string, t Tone, command, dir string) (Player, error) {
	switch mode {
	case ModeDevice, "":
		return NewDevicePlayer(t), nil
	case ModeCommand:
		return NewCommandPlayer(command, t, dir)
	case ModeNone:
		return NopPlayer{}, nil
	default:
		return nil, fmt.Errorf("unknown chime mode %q", mode)
	}
}

// NopPlayer does nothing.
type NopPlayer struct{}

func (NopPlayer) Play(context.Context) error { return nil }

// DevicePlayer plays the chime on the default output device through miniaudio.
type DevicePlayer struct {
	tone Tone
	pcm  []byte
}

// NewDevicePlayer renders t once and plays it on every call.
func NewDevicePlayer(t Tone) *DevicePlayer {
	return &DevicePlayer{tone: t, pcm: t.PCM()}
}

// Play opens a playback device, streams the chime and closes the device.
func (p *DevicePlayer) Play(ctx context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.SampleRate = uint32(p.tone.SampleRate)

	var (
		mu     sync.Mutex
		offset int
		done   = make(chan struct{})
		once   sync.Once
	)

	onData := func(out, _ []byte, _ uint32) {
		mu.Lock()
		n := copy(out, p.pcm[offset:])
		offset += n
		finished := offset >= len(p.pcm)
		mu.Unlock()

		// Pad the rest of the buffer with silence.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if finished {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("init playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("start playback device: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("stop playback device: %w", err)
	}
	return ctx.Err()
}

// CommandPlayer plays a generated WAV file with an external program such as
// afplay or paplay.
type CommandPlayer struct {
	command string
	args    []string
	path    string
}

// NewCommandPlayer writes t as chime.wav into dir and returns a player that
// runs command with the file path as its last argument. command may carry
// extra arguments separated by spaces.
func NewCommandPlayer(command string, t Tone, dir string) (*CommandPlayer, error) {
	if command == "" {
		command = DefaultCommand()
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("no chime command available on %s", runtime.GOOS)
	}

	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "chime.wav")
	if err := SaveWAV(path, t); err != nil {
		return nil, err
	}

	return &CommandPlayer{
		command: fields[0],
		args:    fields[1:],
		path:    path,
	}, nil
}

// Path returns the WAV file the player plays.
func (p *CommandPlayer) Path() string {
	return p.path
}

func (p *CommandPlayer) Play(ctx context.Context) error {
	args := append(append([]string{}, p.args...), p.path)
	cmd := exec.CommandContext(ctx, p.command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.command, err, out)
	}
	return nil
}

// DefaultCommand returns the usual WAV player for the current platform.
func DefaultCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "afplay"
	case "linux":
		return "paplay"
	default:
		return ""
	}
}
