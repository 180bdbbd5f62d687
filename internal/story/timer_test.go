package story

import (
	"testing"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
)

func arenaProgression(d time.Duration) *Progression {
	p := NewProgression(d)
	p.Complete(models.RoomAwakening, nil, start)
	p.Complete(models.RoomArchives, nil, start)
	return p
}

func TestTimerStartsOnArenaEntry(t *testing.T) {
	p := NewProgression(DefaultRoom3Timer)
	if !p.Timer.StartedAt.IsZero() {
		t.Fatal("Expected timer to be idle before room 3")
	}
	p = arenaProgression(DefaultRoom3Timer)
	if !p.Timer.StartedAt.Equal(start) {
		t.Errorf("Expected timer to start at %v, got %v", start, p.Timer.StartedAt)
	}
}

func TestTimerDisabled(t *testing.T) {
	p := arenaProgression(0)
	if p.CheckTimer(start.Add(time.Hour)) {
		t.Error("Expected disabled timer to never expire")
	}
}

func TestCheckTimerIsSticky(t *testing.T) {
	p := arenaProgression(DefaultRoom3Timer)
	if p.CheckTimer(start.Add(4 * time.Minute)) {
		t.Fatal("Expected timer to be running at 4m")
	}
	if !p.CheckTimer(start.Add(5 * time.Minute)) {
		t.Fatal("Expected timer to expire at 5m")
	}
	// A clock that moves backwards cannot un-expire it.
	if !p.CheckTimer(start) {
		t.Error("Expected timer to stay expired")
	}
}

func TestResolveTimeoutIsIdempotent(t *testing.T) {
	p := arenaProgression(DefaultRoom3Timer)
	var choices models.ChoiceLedger

	if res := p.ResolveTimeout(&choices, start); res.Applied {
		t.Fatal("Expected no resolution before expiry")
	}

	later := start.Add(6 * time.Minute)
	p.CheckTimer(later)
	first := p.ResolveTimeout(&choices, later)
	if !first.Applied {
		t.Fatal("Expected timeout resolution to apply")
	}
	if choices.SacrificedAI != models.CompanionShadow {
		t.Errorf("Expected shadow to be sacrificed, got %q", choices.SacrificedAI)
	}
	if !first.Completion.Completed || first.Completion.Fragment == nil {
		t.Errorf("Expected arena to be force-completed with a fragment, got %+v", first.Completion)
	}

	snapshot := choices
	fragments := len(p.Fragments)
	p.CheckTimer(later)
	if again := p.ResolveTimeout(&choices, later); again.Applied {
		t.Error("Expected second resolution to be a no-op")
	}
	if choices != snapshot {
		t.Errorf("Ledger changed on second resolution: %+v vs %+v", choices, snapshot)
	}
	if len(p.Fragments) != fragments {
		t.Error("Fragment appended twice")
	}
	if p.Current != models.RoomTruthChamber {
		t.Errorf("Expected to move to room 4, got %d", p.Current)
	}
}

func TestResolveTimeoutKeepsExistingSacrifice(t *testing.T) {
	p := arenaProgression(time.Minute)
	choices := models.ChoiceLedger{SacrificedAI: models.CompanionEcho}
	p.CheckTimer(start.Add(2 * time.Minute))
	res := p.ResolveTimeout(&choices, start.Add(2*time.Minute))
	if res.Sacrificed != models.CompanionEcho {
		t.Errorf("Expected existing sacrifice to stand, got %q", res.Sacrificed)
	}
}

func TestSolvingArenaStopsTimer(t *testing.T) {
	p := arenaProgression(time.Minute)
	p.Complete(models.RoomTestingArena, nil, start.Add(30*time.Second))
	if p.CheckTimer(start.Add(time.Hour)) {
		t.Error("Expected solved arena timer not to expire")
	}
}
