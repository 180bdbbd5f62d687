package models

import (
	"fmt"
	"time"
)

// Entity identifiers used as relationship endpoints.
const (
	PlayerID        = "player"
	CompanionEcho   = "echo"
	CompanionShadow = "shadow"
)

// RoomNumber identifies one of the five rooms, in play order.
type RoomNumber int

const (
	RoomAwakening RoomNumber = iota + 1
	RoomArchives
	RoomTestingArena
	RoomTruthChamber
	RoomExit
)

// RoomCount is the number of rooms in the facility.
const RoomCount = 5

// Valid reports whether n names one of the five rooms.
func (n RoomNumber) Valid() bool {
	return n >= RoomAwakening && n <= RoomExit
}

func (n RoomNumber) String() string {
	return fmt.Sprintf("room%d", int(n))
}

// PuzzleType selects the validator used for a room.
type PuzzleType string

const (
	PuzzleAnswer        PuzzleType = "answer"
	PuzzlePassword      PuzzleType = "password"
	PuzzleEvidence      PuzzleType = "evidence_analysis"
	PuzzleTimeline      PuzzleType = "timeline"
	PuzzleEthicalChoice PuzzleType = "ethical_choice"
)

// Room is one stage of the facility.
type Room struct {
	Number        RoomNumber      `yaml:"number" json:"number"`
	Name          string          `yaml:"name" json:"name"`
	Description   string          `yaml:"description" json:"description"`
	Objective     string          `yaml:"objective" json:"objective"`
	PuzzleType    PuzzleType      `yaml:"puzzle_type" json:"puzzle_type"`
	RequiredClues []string        `yaml:"required_clues,omitempty" json:"required_clues,omitempty"`
	OptionalClues []string        `yaml:"optional_clues,omitempty" json:"optional_clues,omitempty"`
	Unlocked      bool            `yaml:"unlocked" json:"unlocked"`
	Completed     bool            `yaml:"completed" json:"completed"`
	Fragment      *MemoryFragment `yaml:"fragment,omitempty" json:"fragment,omitempty"`
}

// Clues returns every clue that can be viewed in the room, required ones first.
func (r Room) Clues() []string {
	clues := make([]string, 0, len(r.RequiredClues)+len(r.OptionalClues))
	clues = append(clues, r.RequiredClues...)
	return append(clues, r.OptionalClues...)
}

// MemoryFragment is the narrative revealed when a room is completed.
type MemoryFragment struct {
	ID              string     `yaml:"id" json:"id"`
	Room            RoomNumber `yaml:"room" json:"room"`
	Title           string     `yaml:"title" json:"title"`
	Content         string     `yaml:"content" json:"content"`
	Visual          string     `yaml:"visual" json:"visual"`
	EmotionalImpact string     `yaml:"emotional_impact" json:"emotional_impact"`
}

// Ending is one of the five terminal outcomes.
type Ending string

const (
	EndingGoodbye         Ending = "GOODBYE"
	EndingReset           Ending = "RESET"
	EndingForeverTogether Ending = "FOREVER_TOGETHER"
	EndingLiberation      Ending = "LIBERATION"
	EndingMerger          Ending = "MERGER"
)

// Endings lists every ending in a stable order.
var Endings = []Ending{EndingGoodbye, EndingReset, EndingForeverTogether, EndingLiberation, EndingMerger}

// Valid reports whether e is one of the known endings.
func (e Ending) Valid() bool {
	for _, known := range Endings {
		if e == known {
			return true
		}
	}
	return false
}

// Message is one line of the conversation.
type Message struct {
	Speaker   string    `yaml:"speaker" json:"speaker"`
	Content   string    `yaml:"content" json:"content"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// RoomTimer tracks the countdown that starts when the Testing Arena is entered.
// Once Expired is set it stays set.
type RoomTimer struct {
	StartedAt time.Time     `yaml:"started_at,omitempty" json:"started_at,omitempty"`
	Duration  time.Duration `yaml:"duration" json:"duration"`
	Expired   bool          `yaml:"expired" json:"expired"`
	Resolved  bool          `yaml:"resolved" json:"resolved"`
}

// Running reports whether the timer has been started and has not yet expired.
func (t RoomTimer) Running() bool {
	return !t.StartedAt.IsZero() && !t.Expired
}

// Remaining returns the time left at now, never negative.
func (t RoomTimer) Remaining(now time.Time) time.Duration {
	if t.StartedAt.IsZero() {
		return t.Duration
	}
	if t.Expired {
		return 0
	}
	left := t.Duration - now.Sub(t.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}
