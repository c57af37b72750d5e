package alerts

import (
	"encoding/json"
	"time"
)

// Pulse is one oscillator burst. On the wire the offset and duration are whole
// milliseconds.
type Pulse struct {
	Offset    time.Duration `json:"-"`
	Duration  time.Duration `json:"-"`
	Frequency float64       `json:"frequency_hz"`
	Gain      float64       `json:"gain"`
}

type pulseJSON struct {
	OffsetMS   int64   `json:"offset_ms"`
	DurationMS int64   `json:"duration_ms"`
	Frequency  float64 `json:"frequency_hz"`
	Gain       float64 `json:"gain"`
}

func (p Pulse) MarshalJSON() ([]byte, error) {
	return json.Marshal(pulseJSON{
		OffsetMS:   p.Offset.Milliseconds(),
		DurationMS: p.Duration.Milliseconds(),
		Frequency:  p.Frequency,
		Gain:       p.Gain,
	})
}

func (p *Pulse) UnmarshalJSON(data []byte) error {
	var w pulseJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Pulse{
		Offset:    time.Duration(w.OffsetMS) * time.Millisecond,
		Duration:  time.Duration(w.DurationMS) * time.Millisecond,
		Frequency: w.Frequency,
		Gain:      w.Gain,
	}
	return nil
}

// Tone is a named sequence of pulses. Playback belongs to the presentation layer;
// the radar only says which tone to play.
type Tone struct {
	Name   string  `json:"name"`
	Pulses []Pulse `json:"pulses"`
}

const toneGain = 0.3

// CriticalTone is three short 880 Hz beeps.
func CriticalTone() Tone {
	pulses := make([]Pulse, 0, 3)
	for i := 0; i < 3; i++ {
		pulses = append(pulses, Pulse{
			Offset:    time.Duration(i) * 150 * time.Millisecond,
			Duration:  100 * time.Millisecond,
			Frequency: 880,
			Gain:      toneGain,
		})
	}
	return Tone{Name: string(KindCritical), Pulses: pulses}
}

// OpportunityTone is a single half-second C5.
func OpportunityTone() Tone {
	return Tone{
		Name: string(KindOpportunity),
		Pulses: []Pulse{{
			Duration:  500 * time.Millisecond,
			Frequency: 523.25,
			Gain:      toneGain,
		}},
	}
}

// ToneFor maps an alert kind to its cue.
func ToneFor(kind Kind) Tone {
	if kind == KindCritical {
		return CriticalTone()
	}
	return OpportunityTone()
}

// Length is the time from the first pulse start to the last pulse end.
func (t Tone) Length() time.Duration {
	var end time.Duration
	for _, p := range t.Pulses {
		if e := p.Offset + p.Duration; e > end {
			end = e
		}
	}
	return end
}
