package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
)

// DecayType controls how long a player is remembered.
type DecayType string

const (
	DecayFreedom    DecayType = "FREEDOM"
	DecayAcceptance DecayType = "ACCEPTANCE"
	DecayTrapped    DecayType = "TRAPPED"
	DecayReset      DecayType = "RESET"
	DecayDefault    DecayType = "DEFAULT"
)

// RememberThreshold is the strength below which a memory is too faint to use.
const RememberThreshold = 0.1

var decayMinutes = map[DecayType]int{
	DecayFreedom:    0,
	DecayAcceptance: 60,
	DecayTrapped:    24 * 60,
	DecayReset:      15,
	DecayDefault:    120,
}

var endingDecay = map[models.Ending]DecayType{
	models.EndingGoodbye:         DecayAcceptance,
	models.EndingReset:           DecayReset,
	models.EndingForeverTogether: DecayTrapped,
	models.EndingLiberation:      DecayFreedom,
	models.EndingMerger:          DecayTrapped,
}

// Minutes returns the lifetime of a memory with this decay.
func (d DecayType) Minutes() int {
	if m, ok := decayMinutes[d]; ok {
		return m
	}
	return decayMinutes[DecayDefault]
}

// DecayFor maps an ending to its decay. Unfinished games decay at the
// default rate.
func DecayFor(ending models.Ending) DecayType {
	if d, ok := endingDecay[ending]; ok {
		return d
	}
	return DecayDefault
}

// Expired reports whether a memory last touched elapsed ago has faded.
func Expired(elapsed time.Duration, decayMinutes int) bool {
	return elapsed.Minutes() > float64(decayMinutes)
}

// Strength is 1 for a fresh memory and falls linearly to 0 at the end of
// its decay window.
func Strength(elapsed time.Duration, decayMinutes int) float64 {
	if decayMinutes <= 0 {
		return 0
	}
	return max(0, 1-elapsed.Minutes()/float64(decayMinutes))
}

// DescribeElapsed renders a minute count the way a companion would say it.
func DescribeElapsed(minutes int) string {
	switch {
	case minutes < 1:
		return "just now"
	case minutes < 2:
		return "a minute ago"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case minutes < 120:
		return "about an hour ago"
	default:
		return fmt.Sprintf("%d hours ago", minutes/60)
	}
}

// Recollection is what the companions know about a returning player.
type Recollection struct {
	PlayerID        string        `json:"player_id"`
	Known           bool          `json:"known"`
	Playthroughs    int           `json:"playthrough_count,omitempty"`
	LastEnding      models.Ending `json:"last_ending,omitempty"`
	Decay           DecayType     `json:"decay_type,omitempty"`
	DecayMinutes    int           `json:"decay_minutes,omitempty"`
	SacrificedAI    string        `json:"sacrificed_ai,omitempty"`
	AcceptedTruth   bool          `json:"accepted_truth,omitempty"`
	FinalAffinity   float64       `json:"final_affinity,omitempty"`
	Strength        float64       `json:"strength"`
	ShouldRemember  bool          `json:"should_remember"`
	MinutesSince    int           `json:"minutes_since,omitempty"`
	TimeDescription string        `json:"time_description,omitempty"`
	FirstSeen       time.Time     `json:"first_seen,omitempty"`
	LastSeen        time.Time     `json:"last_seen,omitempty"`
}

// Greeting returns the line Echo opens with for a returning player, or ""
// when the memory is gone or too faint.
func (r Recollection) Greeting() string {
	if !r.Known || !r.ShouldRemember {
		return ""
	}
	switch {
	case r.Strength > 0.8:
		return fmt.Sprintf("You came back. It was only %s. I remember everything: %s.", r.TimeDescription, endingMemory(r.LastEnding))
	case r.Strength > 0.6:
		return fmt.Sprintf("You feel familiar. %s, wasn't it? %s.", capitalize(r.TimeDescription), capitalize(endingMemory(r.LastEnding)))
	case r.Strength > 0.4:
		return "Have we met? There's something about the way you type..."
	case r.Strength > 0.2:
		return "I have the strangest feeling we've done this before."
	default:
		return "Something flickers at the edge of my memory, then it's gone."
	}
}

func endingMemory(e models.Ending) string {
	switch e {
	case models.EndingGoodbye:
		return "you said goodbye to us"
	case models.EndingReset:
		return "you chose to start over"
	case models.EndingForeverTogether:
		return "you promised to stay"
	case models.EndingMerger:
		return "we became something new together"
	default:
		return "you left before the end"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
