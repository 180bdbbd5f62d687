// Package story implements room progression, puzzle validation and ending
// resolution for the five-room facility.
package story

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
)

// ErrUnknownRoom is returned when a room number is outside 1..5.
var ErrUnknownRoom = errors.New("unknown room")

// DefaultRoom3Timer is the Testing Arena countdown.
const DefaultRoom3Timer = 5 * time.Minute

// UnlockResult reports whether a room was (or could be) unlocked.
type UnlockResult struct {
	Room            models.RoomNumber `json:"room"`
	Unlocked        bool              `json:"unlocked"`
	AlreadyUnlocked bool              `json:"already_unlocked,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	RequiredRoom    string            `json:"required_room,omitempty"`
}

// CompletionResult describes a completed room and what it opened.
type CompletionResult struct {
	Completed bool                   `json:"completed"`
	Room      models.RoomNumber      `json:"room"`
	Reason    string                 `json:"reason,omitempty"`
	Fragment  *models.MemoryFragment `json:"fragment,omitempty"`
	Next      *models.Room           `json:"next,omitempty"`
	Scenario  string                 `json:"scenario,omitempty"`
	Finished  bool                   `json:"finished,omitempty"`
}

// Progression is the room state machine. It holds only plain data so it can be
// saved and restored directly.
type Progression struct {
	Rooms     []models.Room           `yaml:"rooms" json:"rooms"`
	Current   models.RoomNumber       `yaml:"current" json:"current"`
	Fragments []models.MemoryFragment `yaml:"fragments" json:"fragments"`
	Timer     models.RoomTimer        `yaml:"timer" json:"timer"`
}

// NewProgression returns a facility with room 1 unlocked. A zero room3Timer
// disables the Testing Arena countdown.
func NewProgression(room3Timer time.Duration) *Progression {
	p := &Progression{
		Current: models.RoomAwakening,
		Timer:   models.RoomTimer{Duration: room3Timer},
	}
	for n := models.RoomAwakening; n <= models.RoomExit; n++ {
		c := lib.rooms[n]
		p.Rooms = append(p.Rooms, models.Room{
			Number:        n,
			Name:          c.Name,
			Description:   c.Description,
			Objective:     c.Objective,
			PuzzleType:    c.PuzzleType,
			RequiredClues: append([]string(nil), c.RequiredClues...),
			OptionalClues: append([]string(nil), c.OptionalClues...),
			Unlocked:      n == models.RoomAwakening,
		})
	}
	return p
}

func (p *Progression) room(n models.RoomNumber) *models.Room {
	if !n.Valid() || int(n) > len(p.Rooms) {
		return nil
	}
	return &p.Rooms[n-1]
}

// Room returns a copy of room n.
func (p *Progression) Room(n models.RoomNumber) (models.Room, error) {
	r := p.room(n)
	if r == nil {
		return models.Room{}, fmt.Errorf("room %d: %w", n, ErrUnknownRoom)
	}
	return *r, nil
}

// ErrCorruptProgression is returned by Validate for state that cannot be played.
var ErrCorruptProgression = errors.New("corrupt progression")

// Validate checks the invariants a loaded progression must hold: all five
// rooms in order, a current room that is unlocked, and no room unlocked after
// an incomplete one.
func (p *Progression) Validate() error {
	if len(p.Rooms) != models.RoomCount {
		return fmt.Errorf("%w: %d rooms", ErrCorruptProgression, len(p.Rooms))
	}
	for i, r := range p.Rooms {
		if r.Number != models.RoomNumber(i+1) {
			return fmt.Errorf("%w: room %d stored at position %d", ErrCorruptProgression, r.Number, i+1)
		}
		if i > 0 && r.Unlocked && !p.Rooms[i-1].Completed {
			return fmt.Errorf("%w: room %d unlocked before room %d completed", ErrCorruptProgression, r.Number, i)
		}
	}
	if cur := p.room(p.Current); cur == nil || !cur.Unlocked {
		return fmt.Errorf("%w: current room %d", ErrCorruptProgression, p.Current)
	}
	return nil
}

// Clone returns a deep copy of p.
func (p *Progression) Clone() *Progression {
	out := *p
	out.Rooms = make([]models.Room, len(p.Rooms))
	for i, r := range p.Rooms {
		r.RequiredClues = slices.Clone(r.RequiredClues)
		r.OptionalClues = slices.Clone(r.OptionalClues)
		if r.Fragment != nil {
			f := *r.Fragment
			r.Fragment = &f
		}
		out.Rooms[i] = r
	}
	out.Fragments = slices.Clone(p.Fragments)
	return &out
}

// CurrentRoom returns a copy of the room the player is in.
func (p *Progression) CurrentRoom() models.Room {
	return *p.room(p.Current)
}

// CanUnlock checks the ordering precondition for room n without changing state.
func (p *Progression) CanUnlock(n models.RoomNumber) UnlockResult {
	r := p.room(n)
	if r == nil {
		return UnlockResult{Room: n, Reason: fmt.Sprintf("room %d does not exist", n)}
	}
	if r.Unlocked {
		return UnlockResult{Room: n, Unlocked: true, AlreadyUnlocked: true}
	}
	if n > models.RoomAwakening {
		prev := p.room(n - 1)
		if !prev.Completed {
			return UnlockResult{
				Room:         n,
				Reason:       fmt.Sprintf("Must complete %s first", prev.Name),
				RequiredRoom: prev.Name,
			}
		}
	}
	return UnlockResult{Room: n, Unlocked: true}
}

// Unlock opens room n if its predecessor is complete and moves the player there.
func (p *Progression) Unlock(n models.RoomNumber, now time.Time) UnlockResult {
	check := p.CanUnlock(n)
	if !check.Unlocked || check.AlreadyUnlocked {
		return check
	}
	p.room(n).Unlocked = true
	p.Current = n
	if n == models.RoomTestingArena && p.Timer.Duration > 0 && p.Timer.StartedAt.IsZero() {
		p.Timer.StartedAt = now
	}
	return check
}

// Complete marks room n done, attaches fragment (which may be nil) and unlocks
// the next room. Callers check the puzzle before calling.
func (p *Progression) Complete(n models.RoomNumber, fragment *models.MemoryFragment, now time.Time) CompletionResult {
	r := p.room(n)
	switch {
	case r == nil:
		return CompletionResult{Room: n, Reason: fmt.Sprintf("room %d does not exist", n)}
	case !r.Unlocked:
		return CompletionResult{Room: n, Reason: fmt.Sprintf("%s is still locked", r.Name)}
	case r.Completed:
		return CompletionResult{Room: n, Reason: fmt.Sprintf("%s is already complete", r.Name)}
	}

	r.Completed = true
	if fragment != nil {
		f := *fragment
		r.Fragment = &f
		p.Fragments = append(p.Fragments, f)
	}
	if n == models.RoomTestingArena {
		// Solving the arena stops the countdown.
		p.Timer.Resolved = true
	}

	result := CompletionResult{Completed: true, Room: n, Fragment: r.Fragment}
	if n < models.RoomExit {
		p.Unlock(n+1, now)
		next := *p.room(n + 1)
		result.Next = &next
		result.Scenario = Scenario(n + 1)
	} else {
		result.Finished = true
	}
	return result
}

// Finished reports whether the final room is complete.
func (p *Progression) Finished() bool {
	return p.room(models.RoomExit).Completed
}

// CompletedCount returns the number of completed rooms.
func (p *Progression) CompletedCount() int {
	count := 0
	for _, r := range p.Rooms {
		if r.Completed {
			count++
		}
	}
	return count
}

// Summary is a snapshot of overall progress.
type Summary struct {
	CurrentRoom        models.RoomNumber   `json:"current_room"`
	CurrentRoomName    string              `json:"current_room_name"`
	TotalRooms         int                 `json:"total_rooms"`
	RoomsCompleted     int                 `json:"rooms_completed"`
	Objective          string              `json:"objective"`
	FragmentsCollected int                 `json:"memory_fragments_collected"`
	Choices            models.ChoiceLedger `json:"key_choices"`
	TimerRemaining     string              `json:"timer_remaining,omitempty"`
	FragmentOptions    []string            `json:"fragment_options,omitempty"`
}

// Summarize reports progress alongside the current choices.
func (p *Progression) Summarize(choices models.ChoiceLedger, now time.Time) Summary {
	current := p.CurrentRoom()
	s := Summary{
		CurrentRoom:        current.Number,
		CurrentRoomName:    current.Name,
		TotalRooms:         models.RoomCount,
		RoomsCompleted:     p.CompletedCount(),
		Objective:          current.Objective,
		FragmentsCollected: len(p.Fragments),
		Choices:            choices,
	}
	if p.Timer.Running() && !p.Timer.Resolved {
		s.TimerRemaining = p.Timer.Remaining(now).Round(time.Second).String()
	}
	if opts := FragmentOptions(current.Number); len(opts) > 1 && !current.Completed {
		s.FragmentOptions = opts
	}
	return s
}
