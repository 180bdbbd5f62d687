// Package affinity tracks relationship scores between pairs of entities.
package affinity

import (
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	// MinScore is the lowest score a relationship can hold.
	MinScore = -1.0
	// MaxScore is the highest score a relationship can hold.
	MaxScore = 1.0
)

// Change is one entry of the update history. Entries are never modified.
type Change struct {
	EntityA   string    `yaml:"entity_a" json:"entity_a"`
	EntityB   string    `yaml:"entity_b" json:"entity_b"`
	Delta     float64   `yaml:"delta" json:"delta"`
	Score     float64   `yaml:"score" json:"score"`
	Reason    string    `yaml:"reason,omitempty" json:"reason,omitempty"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// Tracker stores a clamped score per unordered entity pair.
// The zero value is ready to use.
type Tracker struct {
	Scores  map[string]float64 `yaml:"scores" json:"scores"`
	History []Change           `yaml:"history" json:"history"`

	now func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{Scores: make(map[string]float64)}
}

// pairKey orders the two identifiers so lookups are symmetric.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

func clamp(v float64) float64 {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Update adds delta to the pair's score, clamps it into range and logs the change.
func (t *Tracker) Update(a, b string, delta float64, reason string) float64 {
	if t.Scores == nil {
		t.Scores = make(map[string]float64)
	}
	key := pairKey(a, b)
	score := clamp(t.Scores[key] + delta)
	t.Scores[key] = score

	stamp := time.Now()
	if t.now != nil {
		stamp = t.now()
	}
	t.History = append(t.History, Change{
		EntityA:   a,
		EntityB:   b,
		Delta:     delta,
		Score:     score,
		Reason:    reason,
		Timestamp: stamp,
	})
	return score
}

// Get returns the pair's score, 0 when the pair has never been updated.
func (t *Tracker) Get(a, b string) float64 {
	return t.Scores[pairKey(a, b)]
}

// RelationshipsOf returns every score involving entity, keyed by the other entity.
func (t *Tracker) RelationshipsOf(entity string) map[string]float64 {
	out := make(map[string]float64)
	for key, score := range t.Scores {
		a, b, ok := strings.Cut(key, "|")
		if !ok {
			continue
		}
		switch entity {
		case a:
			out[b] = score
		case b:
			out[a] = score
		}
	}
	return out
}

// Recent returns up to n of the newest history entries, oldest first.
func (t *Tracker) Recent(n int) []Change {
	if n <= 0 || n >= len(t.History) {
		return append([]Change(nil), t.History...)
	}
	return append([]Change(nil), t.History[len(t.History)-n:]...)
}

// Clone returns a deep copy of t.
func (t *Tracker) Clone() *Tracker {
	return &Tracker{
		Scores:  maps.Clone(t.Scores),
		History: slices.Clone(t.History),
		now:     t.now,
	}
}

// Describe maps a score to one of seven qualitative bands.
func Describe(score float64) string {
	switch {
	case score >= 0.8:
		return "Very Close"
	case score >= 0.5:
		return "Friends"
	case score >= 0.2:
		return "Friendly"
	case score >= -0.2:
		return "Neutral"
	case score >= -0.5:
		return "Tense"
	case score >= -0.8:
		return "Hostile"
	default:
		return "Enemies"
	}
}

// Advice is guidance for a companion about how far it can open up.
func Advice(score float64) string {
	switch {
	case score >= 0.7:
		return "Very strong relationship. The player trusts you deeply; vulnerable truths are safe to share."
	case score >= 0.4:
		return "Good relationship. The player is friendly; hint at deeper topics."
	case score >= 0.1:
		return "Neutral relationship. Build more trust before revealing anything sensitive."
	case score >= -0.3:
		return "Weak relationship. Focus on connection before story reveals."
	default:
		return "Negative relationship. The player may be frustrated; be careful."
	}
}
