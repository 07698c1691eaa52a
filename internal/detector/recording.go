package detector

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// maxRecordingLine bounds a single JSON line; a full mesh is roughly 30KB.
const maxRecordingLine = 1 << 20

// RecordedFrame is one line of a landmark recording.
type RecordedFrame struct {
	// Offset is the time since the start of the recording.
	Offset time.Duration
	// Face is nil when no face was visible in the frame.
	Face *FaceLandmarks
}

// recordLine is the JSON-lines wire form: {"t": seconds, "score": s, "points": [...]}.
type recordLine struct {
	T      float64   `json:"t"`
	Score  float64   `json:"score,omitempty"`
	Points []Point3D `json:"points"`
}

// RecordingWriter appends frames to a JSON-lines landmark recording.
// It is safe for concurrent use.
type RecordingWriter struct {
	mu    sync.Mutex
	enc   *json.Encoder
	start time.Time
}

// NewRecordingWriter creates a writer whose offsets are relative to start.
func NewRecordingWriter(w io.Writer, start time.Time) *RecordingWriter {
	return &RecordingWriter{
		enc:   json.NewEncoder(w),
		start: start,
	}
}

// Write records the face seen at now. A nil face records a no-face frame.
func (r *RecordingWriter) Write(now time.Time, face *FaceLandmarks) error {
	line := recordLine{
		T:      now.Sub(r.start).Seconds(),
		Points: []Point3D{},
	}
	if face != nil {
		line.Score = face.Score
		line.Points = face.Points
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(line); err != nil {
		return fmt.Errorf("write recording frame: %w", err)
	}
	return nil
}

// ReadRecording parses a JSON-lines landmark recording.
// Blank lines and lines starting with '#' are skipped. Offsets must not decrease.
func ReadRecording(r io.Reader) ([]RecordedFrame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordingLine)

	var frames []RecordedFrame
	var last time.Duration
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		var line recordLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if math.IsNaN(line.T) || line.T < 0 {
			return nil, fmt.Errorf("line %d: invalid timestamp %v", lineNo, line.T)
		}

		offset := time.Duration(line.T * float64(time.Second))
		if len(frames) > 0 && offset < last {
			return nil, fmt.Errorf("line %d: timestamp %.3fs goes backwards", lineNo, line.T)
		}
		last = offset

		frame := RecordedFrame{Offset: offset}
		if len(line.Points) > 0 {
			frame.Face = &FaceLandmarks{Points: line.Points, Score: line.Score}
		}
		frames = append(frames, frame)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return frames, nil
}
