// Package testdata holds landmark recordings shared by tests.
package testdata

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/ayusman/mouthwatch/internal/detector"
)

//go:embed recordings/*.jsonl
var recordingsFS embed.FS

// Recording names.
const (
	// Episode is 6s at 5 fps: closed until 1.0s, open from 1.2s with a
	// single closed frame at 2.0s, no face from 3.8s to 5.0s, then closed.
	Episode = "episode.jsonl"
	// Closed is 10 frames with the mouth closed.
	Closed = "closed.jsonl"
	// Open is 10 frames with the mouth open.
	Open = "open.jsonl"
)

// LoadRecording parses an embedded recording by name.
func LoadRecording(name string) ([]detector.RecordedFrame, error) {
	f, err := recordingsFS.Open("recordings/" + name)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	defer f.Close()

	frames, err := detector.ReadRecording(f)
	if err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", name, err)
	}
	return frames, nil
}

// ReadFile returns the raw bytes of an embedded recording.
func ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(recordingsFS, "recordings/"+name)
}
