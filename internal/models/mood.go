package models

// Mood is the coarse emotion derived from vitals for presentation. It is
// classified with its own threshold set, configured independently from the
// decision-engine thresholds.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodNeutral  Mood = "neutral"
	MoodSad      Mood = "sad"
	MoodCritical Mood = "critical"
	MoodAsleep   Mood = "asleep"
	MoodDead     Mood = "dead"
)

// MoodThresholds configures the emotion classification cutoffs. A vital at
// or below Critical makes the mood critical; an average below Sad or below
// Happy yields sad or neutral respectively.
type MoodThresholds struct {
	Critical int
	Sad      int
	Happy    int
}

// DefaultMoodThresholds mirrors the presentation-layer classification of the
// original platform client.
func DefaultMoodThresholds() MoodThresholds {
	return MoodThresholds{Critical: 15, Sad: 40, Happy: 70}
}

// MoodFor classifies the pet's mood from its vitals. Dead and sleeping take
// precedence over the metric-based classification.
func MoodFor(v PetVitals, t MoodThresholds) Mood {
	if v.Dead {
		return MoodDead
	}
	if v.Sleeping {
		return MoodAsleep
	}
	if min5(v) <= t.Critical {
		return MoodCritical
	}
	avg := (v.Hunger + v.Health + v.Energy + v.Happiness + v.Hygiene) / 5
	switch {
	case avg < t.Sad:
		return MoodSad
	case avg < t.Happy:
		return MoodNeutral
	default:
		return MoodHappy
	}
}

func min5(v PetVitals) int {
	m := v.Hunger
	for _, n := range []int{v.Health, v.Energy, v.Happiness, v.Hygiene} {
		if n < m {
			m = n
		}
	}
	return m
}
