// Package session holds per-player game state and its persistence.
package session

import (
	"slices"
	"time"

	"github.com/tatianab/echo-rooms/internal/affinity"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/story"
)

// History is the conversation so far. Older messages may be folded into Summary.
type History struct {
	Summary  string           `yaml:"summary,omitempty" json:"summary,omitempty"`
	Messages []models.Message `yaml:"messages" json:"messages"`
}

// Add appends one message.
func (h *History) Add(speaker, content string, at time.Time) {
	h.Messages = append(h.Messages, models.Message{Speaker: speaker, Content: content, Timestamp: at})
}

// ContextWindow returns the last n messages, or all of them when n <= 0.
func (h History) ContextWindow(n int) []models.Message {
	if n <= 0 || n >= len(h.Messages) {
		return append([]models.Message(nil), h.Messages...)
	}
	return append([]models.Message(nil), h.Messages[len(h.Messages)-n:]...)
}

// Game is everything one playthrough owns. It is plain data; live clients
// such as the Gemini connection live in the engine and are never stored here.
type Game struct {
	ID          string              `yaml:"id" json:"id"`
	PlayerID    string              `yaml:"player_id" json:"player_id"`
	Progression *story.Progression  `yaml:"progression" json:"progression"`
	Affinity    *affinity.Tracker   `yaml:"affinity" json:"affinity"`
	Choices     models.ChoiceLedger `yaml:"choices" json:"choices"`
	Puzzles     models.PuzzleState  `yaml:"puzzles" json:"puzzles"`
	History     History             `yaml:"history" json:"history"`
	Ending      *story.Resolution   `yaml:"ending,omitempty" json:"ending,omitempty"`
	CreatedAt   time.Time           `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `yaml:"updated_at" json:"updated_at"`
}

// NewGame starts a fresh playthrough in room 1.
func NewGame(id, playerID string, room3Timer time.Duration, now time.Time) *Game {
	return &Game{
		ID:          id,
		PlayerID:    playerID,
		Progression: story.NewProgression(room3Timer),
		Affinity:    affinity.NewTracker(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Companions lists the two companions in display order.
var Companions = []string{models.CompanionEcho, models.CompanionShadow}

// CompanionAffinity returns the player's score with each companion.
func (g *Game) CompanionAffinity() map[string]float64 {
	out := make(map[string]float64, len(Companions))
	for _, c := range Companions {
		out[c] = g.Affinity.Get(models.PlayerID, c)
	}
	return out
}

// AverageAffinity is the mean of the player's scores with both companions.
// It is the value the ending cascade reads.
func (g *Game) AverageAffinity() float64 {
	var sum float64
	for _, c := range Companions {
		sum += g.Affinity.Get(models.PlayerID, c)
	}
	return sum / float64(len(Companions))
}

// Clone returns a deep copy of g that can be mutated while g is read elsewhere.
func (g *Game) Clone() *Game {
	out := *g
	out.Progression = g.Progression.Clone()
	out.Affinity = g.Affinity.Clone()
	out.Puzzles = g.Puzzles.Clone()
	out.History.Messages = slices.Clone(g.History.Messages)
	if g.Ending != nil {
		e := *g.Ending
		out.Ending = &e
	}
	return &out
}

// Ended reports whether an ending has been reached.
func (g *Game) Ended() bool {
	return g.Ending != nil
}
