package chime

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// WriteWAV encodes the tone as a mono 16-bit WAV stream.
func WriteWAV(w io.WriteSeeker, t Tone) error {
	enc := wav.NewEncoder(w, t.SampleRate, bitDepth, 1, 1)

	buf := &audio.IntBuffer{
		Data:           t.Samples(),
		Format:         &audio.Format{SampleRate: t.SampleRate, NumChannels: 1},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode chime: %w", err)
	}

	return enc.Close()
}

// SaveWAV writes the tone to path, creating parent directories.
func SaveWAV(path string, t Tone) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create chime directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chime file: %w", err)
	}
	defer f.Close()

	if err := WriteWAV(f, t); err != nil {
		return err
	}
	return f.Close()
}
