// Package chime synthesizes and plays the alert chime.
package chime

import (
	"encoding/binary"
	"math"
	"time"
)

// Tone describes a short multi-note chime rendered as 16-bit mono PCM.
type Tone struct {
	// Notes are played one after another, in Hz.
	Notes []float64
	// NoteDuration is the length of each note.
	NoteDuration time.Duration
	// Volume is the peak amplitude in [0, 1].
	Volume float64
	// Decay is the exponential decay rate per second applied to each note.
	Decay      float64
	SampleRate int
}

// DefaultTone is a two-note descending chime.
func DefaultTone() Tone {
	return Tone{
		Notes:        []float64{880, 659.25},
		NoteDuration: 220 * time.Millisecond,
		Volume:       0.5,
		Decay:        6,
		SampleRate:   44100,
	}
}

// Duration returns the total length of the chime.
func (t Tone) Duration() time.Duration {
	return time.Duration(len(t.Notes)) * t.NoteDuration
}

// Samples renders the chime as signed 16-bit sample values.
func (t Tone) Samples() []int {
	perNote := int(t.NoteDuration.Seconds() * float64(t.SampleRate))
	if perNote <= 0 || len(t.Notes) == 0 {
		return nil
	}

	volume := math.Max(0, math.Min(1, t.Volume))
	// Short linear ramps at both ends of each note avoid clicks.
	ramp := t.SampleRate / 200
	if ramp > perNote/2 {
		ramp = perNote / 2
	}

	out := make([]int, 0, perNote*len(t.Notes))
	for _, freq := range t.Notes {
		for i := 0; i < perNote; i++ {
			sec := float64(i) / float64(t.SampleRate)
			env := volume * math.Exp(-t.Decay*sec)
			if i < ramp {
				env *= float64(i) / float64(ramp)
			} else if tail := perNote - 1 - i; tail < ramp {
				env *= float64(tail) / float64(ramp)
			}
			v := env * math.Sin(2*math.Pi*freq*sec)
			out = append(out, int(math.Round(v*math.MaxInt16)))
		}
	}
	return out
}

// PCM renders the chime as little-endian signed 16-bit bytes.
func (t Tone) PCM() []byte {
	samples := t.Samples()
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(s)))
	}
	return buf
}
