// Package tools exposes game operations to the companions as named tools.
// Every transport (the MCP server, the in-process game loop, tests) goes
// through the one Registry.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/memory"
	"github.com/tatianab/echo-rooms/internal/session"
)

// Name identifies a tool.
type Name string

const (
	CheckRelationshipAffinity Name = "check_relationship_affinity"
	AnalyzePlayerSentiment    Name = "analyze_player_sentiment"
	CheckRoomProgress         Name = "check_room_progress"
	ViewClue                  Name = "view_clue"
	CheckPuzzle               Name = "check_puzzle"
	UnlockNextRoom            Name = "unlock_next_room"
	RecordPlayerChoice        Name = "record_player_choice"
	GetEndingPrediction       Name = "get_ending_prediction"
	RecallPlayerMemory        Name = "recall_player_memory"
	ForgetPlayerMemory        Name = "forget_player_memory"
)

// Capability groups tools by the backing service they need.
type Capability string

const (
	CapabilityGame   Capability = "game"
	CapabilityMemory Capability = "memory"
)

// Spec describes one tool.
type Spec struct {
	Name        Name
	Capability  Capability
	Description string
}

var specs = []Spec{
	{CheckRelationshipAffinity, CapabilityGame, "Check how a companion feels about the player (or another target): affinity score, description and advice."},
	{AnalyzePlayerSentiment, CapabilityGame, "Classify a player message and suggest an affinity change. Does not change the game."},
	{CheckRoomProgress, CapabilityGame, "Report the current room, its objective, rooms completed, fragments collected and key choices."},
	{ViewClue, CapabilityGame, "Examine a clue in a room (current room by default) and return its text."},
	{CheckPuzzle, CapabilityGame, "Check whether a player message solves the current room's puzzle, without changing the game."},
	{UnlockNextRoom, CapabilityGame, "Complete the current room and open the next one once every required clue has been examined."},
	{RecordPlayerChoice, CapabilityGame, "Record a key choice: sacrifice_echo, sacrifice_shadow, refuse_sacrifice, accept_truth, deny_truth or vulnerability."},
	{GetEndingPrediction, CapabilityGame, "Predict which ending the player is heading toward."},
	{RecallPlayerMemory, CapabilityMemory, "Recall what the companions remember about a player from earlier playthroughs."},
	{ForgetPlayerMemory, CapabilityMemory, "Erase everything remembered about a player."},
}

// Args is the union of every tool's arguments. Each tool reads only the
// fields it needs.
type Args struct {
	SessionID   string `json:"session_id,omitempty" jsonschema:"game session id"`
	CompanionID string `json:"companion_id,omitempty" jsonschema:"echo or shadow"`
	TargetID    string `json:"target_id,omitempty" jsonschema:"who the companion feels about; defaults to the player"`
	Message     string `json:"message,omitempty" jsonschema:"the player's message"`
	Room        int    `json:"room,omitempty" jsonschema:"room number 1-5; defaults to the current room"`
	Clue        string `json:"clue,omitempty" jsonschema:"clue name, e.g. blog or journal"`
	ChoiceType  string `json:"choice_type,omitempty" jsonschema:"kind of choice being recorded"`
	ChoiceValue string `json:"choice_value,omitempty" jsonschema:"free-form detail about the choice"`
	Reason      string `json:"reason,omitempty" jsonschema:"why the room is being unlocked"`
	Fragment    string `json:"fragment,omitempty" jsonschema:"memory fragment to award when a room offers more than one"`
	PlayerID    string `json:"player_id,omitempty" jsonschema:"stable player id"`
}

// ErrMissingArgument is wrapped when a required argument is empty.
var ErrMissingArgument = errors.New("missing argument")

// ErrNoMemory is returned by memory tools when no store is configured.
var ErrNoMemory = errors.New("player memory is not configured")

// UnknownToolError is returned for a name outside the registry, or for a tool
// whose capability the registry was not built with.
type UnknownToolError struct {
	Name       string
	Capability Capability
}

func (e *UnknownToolError) Error() string {
	if e.Capability != "" {
		return fmt.Sprintf("tool %q requires capability %q", e.Name, e.Capability)
	}
	return fmt.Sprintf("unknown tool %q", e.Name)
}

type handler func(ctx context.Context, args Args) (any, error)

// Registry dispatches tool calls to the engine, the live sessions and the
// player memory store.
type Registry struct {
	engine   *engine.Engine
	sessions *session.Manager
	memory   *memory.Store
	caps     map[Capability]bool
	handlers map[Name]handler
}

// NewRegistry builds a registry serving caps. With no caps every capability
// is enabled. mem may be nil, in which case memory tools fail with
// ErrNoMemory.
func NewRegistry(eng *engine.Engine, sessions *session.Manager, mem *memory.Store, caps ...Capability) *Registry {
	if len(caps) == 0 {
		caps = []Capability{CapabilityGame, CapabilityMemory}
	}
	r := &Registry{
		engine:   eng,
		sessions: sessions,
		memory:   mem,
		caps:     make(map[Capability]bool, len(caps)),
	}
	for _, c := range caps {
		r.caps[c] = true
	}
	r.handlers = map[Name]handler{
		CheckRelationshipAffinity: r.checkRelationshipAffinity,
		AnalyzePlayerSentiment:    r.analyzePlayerSentiment,
		CheckRoomProgress:         r.checkRoomProgress,
		ViewClue:                  r.viewClue,
		CheckPuzzle:               r.checkPuzzle,
		UnlockNextRoom:            r.unlockNextRoom,
		RecordPlayerChoice:        r.recordPlayerChoice,
		GetEndingPrediction:       r.getEndingPrediction,
		RecallPlayerMemory:        r.recallPlayerMemory,
		ForgetPlayerMemory:        r.forgetPlayerMemory,
	}
	return r
}

// Tools lists the tools this registry serves, sorted by name.
func (r *Registry) Tools() []Spec {
	var out []Spec
	for _, s := range specs {
		if r.caps[s.Capability] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the spec for name if this registry serves it.
func (r *Registry) Lookup(name string) (Spec, error) {
	for _, s := range specs {
		if string(s.Name) != name {
			continue
		}
		if !r.caps[s.Capability] {
			return Spec{}, &UnknownToolError{Name: name, Capability: s.Capability}
		}
		return s, nil
	}
	return Spec{}, &UnknownToolError{Name: name}
}

// Call runs the named tool.
func (r *Registry) Call(ctx context.Context, name string, args Args) (any, error) {
	spec, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.handlers[spec.Name](ctx, args)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s: %w", field, ErrMissingArgument)
	}
	return nil
}

// withGame runs fn on the session named in args under its lock.
func (r *Registry) withGame(args Args, fn func(*session.Game) (any, error)) (any, error) {
	if err := required("session_id", args.SessionID); err != nil {
		return nil, err
	}
	var out any
	err := r.sessions.With(args.SessionID, func(g *session.Game) error {
		var err error
		out, err = fn(g)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
