package story

import (
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
)

// TimeoutSacrifice is the companion erased when the arena countdown runs out.
const TimeoutSacrifice = models.ChoiceSacrificeShadow

// CheckTimer marks the arena timer expired once its duration has elapsed.
// It returns true when the timer is expired, and never clears the flag.
func (p *Progression) CheckTimer(now time.Time) bool {
	t := &p.Timer
	if t.Expired {
		return true
	}
	if t.StartedAt.IsZero() || t.Duration <= 0 || t.Resolved {
		return false
	}
	if now.Sub(t.StartedAt) >= t.Duration {
		t.Expired = true
	}
	return t.Expired
}

// TimeoutResult describes what the default timeout resolution did.
type TimeoutResult struct {
	Applied    bool             `json:"applied"`
	Sacrificed string           `json:"sacrificed,omitempty"`
	Completion CompletionResult `json:"completion"`
}

// ResolveTimeout applies the default sacrifice and force-completes the arena.
// It runs at most once per expiry; later calls return Applied false and leave
// the ledger untouched.
func (p *Progression) ResolveTimeout(choices *models.ChoiceLedger, now time.Time) TimeoutResult {
	if !p.Timer.Expired || p.Timer.Resolved {
		return TimeoutResult{}
	}
	if choices.SacrificedAI == "" {
		choices.Record(TimeoutSacrifice)
	}
	p.Timer.Resolved = true

	result := TimeoutResult{Applied: true, Sacrificed: choices.SacrificedAI}
	if arena := p.room(models.RoomTestingArena); !arena.Completed {
		result.Completion = p.Complete(models.RoomTestingArena, Fragment("fragment_3"), now)
	}
	return result
}
