package tools

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/memory"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

func newTestRegistry(t *testing.T, caps ...Capability) (*Registry, *session.Game, *memory.Store) {
	t.Helper()
	store, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"), 10)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sessions := session.NewManager(0)
	g := sessions.Create("player-1")
	eng := engine.New(engine.KeywordAnalyzer{}, engine.ScriptedNarrator{})
	return NewRegistry(eng, sessions, store, caps...), g, store
}

func call(t *testing.T, r *Registry, name Name, args Args) any {
	t.Helper()
	out, err := r.Call(context.Background(), string(name), args)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return out
}

func TestToolsByCapability(t *testing.T) {
	all, _, _ := newTestRegistry(t)
	if got := len(all.Tools()); got != 10 {
		t.Errorf("Expected 10 tools, got %d", got)
	}
	game, _, _ := newTestRegistry(t, CapabilityGame)
	if got := len(game.Tools()); got != 8 {
		t.Errorf("Expected 8 game tools, got %d", got)
	}
	for _, s := range game.Tools() {
		if s.Capability != CapabilityGame {
			t.Errorf("Unexpected tool %s in game registry", s.Name)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	r, _, _ := newTestRegistry(t, CapabilityGame)
	_, err := r.Call(context.Background(), "summon_dragon", Args{})
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) || unknown.Capability != "" {
		t.Fatalf("Expected UnknownToolError, got %v", err)
	}

	_, err = r.Call(context.Background(), string(RecallPlayerMemory), Args{PlayerID: "p"})
	if !errors.As(err, &unknown) || unknown.Capability != CapabilityMemory {
		t.Fatalf("Expected capability error, got %v", err)
	}
}

func TestMissingSession(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Call(context.Background(), string(CheckRoomProgress), Args{})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Expected ErrMissingArgument, got %v", err)
	}
	_, err = r.Call(context.Background(), string(CheckRoomProgress), Args{SessionID: "nope"})
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestAffinityTool(t *testing.T) {
	r, g, _ := newTestRegistry(t)
	g.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.5, "test")

	out := call(t, r, CheckRelationshipAffinity, Args{SessionID: g.ID, CompanionID: models.CompanionEcho})
	report := out.(AffinityReport)
	if report.Affinity != 0.5 || report.TargetID != models.PlayerID {
		t.Errorf("Unexpected report %+v", report)
	}
	if report.Description == "" || report.Advice == "" {
		t.Errorf("Expected description and advice, got %+v", report)
	}
}

func TestSentimentToolDoesNotMutate(t *testing.T) {
	r, g, _ := newTestRegistry(t)
	out := call(t, r, AnalyzePlayerSentiment, Args{Message: "Thank you, I feel like I can trust you", CompanionID: models.CompanionEcho})
	report := out.(SentimentReport)
	if report.Label != engine.LabelVeryPositive {
		t.Errorf("Expected very_positive, got %s", report.Label)
	}
	if g.Affinity.Get(models.PlayerID, models.CompanionEcho) != 0 {
		t.Error("Expected sentiment tool to leave affinity alone")
	}
}

func TestRoomFlowThroughTools(t *testing.T) {
	r, g, _ := newTestRegistry(t)

	out := call(t, r, UnlockNextRoom, Args{SessionID: g.ID, Reason: "player remembered"})
	if res := out.(engine.UnlockResult); !res.Unlocked {
		t.Fatalf("Expected room 1 to unlock room 2, got %+v", res)
	}

	out = call(t, r, UnlockNextRoom, Args{SessionID: g.ID})
	if res := out.(engine.UnlockResult); res.Unlocked || len(res.Missing) != 3 {
		t.Fatalf("Expected unlock refused with 3 missing clues, got %+v", res)
	}

	for _, clue := range []string{"blog", "social_media", "news"} {
		view := call(t, r, ViewClue, Args{SessionID: g.ID, Clue: clue}).(engine.ClueView)
		if !view.Found {
			t.Fatalf("Expected clue %s found: %+v", clue, view)
		}
	}

	puzzle := call(t, r, CheckPuzzle, Args{SessionID: g.ID, Message: "the password is ALEXCHEN_MAY12_2022"}).(story.PuzzleResult)
	if !puzzle.Complete {
		t.Errorf("Expected password accepted, got %+v", puzzle)
	}
	if g.Progression.Current != models.RoomArchives {
		t.Error("Expected check_puzzle to leave the room unchanged")
	}

	status := call(t, r, CheckRoomProgress, Args{SessionID: g.ID}).(story.Summary)
	if len(status.FragmentOptions) != 3 || status.FragmentOptions[0] != "fragment_2_lab" {
		t.Errorf("Expected the three archive fragments offered, got %v", status.FragmentOptions)
	}

	res := call(t, r, UnlockNextRoom, Args{SessionID: g.ID, Fragment: "fragment_2_accident"}).(engine.UnlockResult)
	if !res.Unlocked || res.Completion.Fragment == nil || res.Completion.Fragment.ID != "fragment_2_accident" {
		t.Fatalf("Expected selected fragment awarded, got %+v", res)
	}

	status = call(t, r, CheckRoomProgress, Args{SessionID: g.ID}).(story.Summary)
	if len(status.FragmentOptions) != 0 {
		t.Errorf("Expected no fragment choice in the arena, got %v", status.FragmentOptions)
	}
	if status.CurrentRoom != models.RoomTestingArena || status.RoomsCompleted != 2 {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestRecordChoiceTool(t *testing.T) {
	r, g, _ := newTestRegistry(t)
	out := call(t, r, RecordPlayerChoice, Args{SessionID: g.ID, ChoiceType: "sacrifice_echo"})
	if report := out.(ChoiceReport); report.Choices.SacrificedAI != models.CompanionEcho {
		t.Errorf("Expected echo sacrificed, got %+v", report.Choices)
	}

	if _, err := r.Call(context.Background(), string(RecordPlayerChoice), Args{SessionID: g.ID, ChoiceType: "dance"}); err == nil {
		t.Error("Expected unknown choice type to fail")
	}

	var last ChoiceReport
	for range story.ForcedEndingThreshold {
		last = call(t, r, RecordPlayerChoice, Args{SessionID: g.ID, ChoiceType: "rejection"}).(ChoiceReport)
	}
	if last.Ending == nil || last.Ending.Ending != models.EndingReset {
		t.Errorf("Expected forced RESET after repeated rejection, got %+v", last.Ending)
	}
}

func TestEndingPredictionTool(t *testing.T) {
	r, g, _ := newTestRegistry(t)
	g.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.8, "test")
	g.Affinity.Update(models.PlayerID, models.CompanionShadow, 0.8, "test")
	g.Choices.Record(models.ChoiceAcceptTruth)

	p := call(t, r, GetEndingPrediction, Args{SessionID: g.ID}).(Prediction)
	if p.Ending != models.EndingForeverTogether {
		t.Errorf("Expected FOREVER_TOGETHER, got %s", p.Ending)
	}
	if p.Affinities[models.CompanionEcho] != 0.8 || p.Title == "" {
		t.Errorf("Unexpected prediction %+v", p)
	}
}

func TestMemoryTools(t *testing.T) {
	r, _, store := newTestRegistry(t)
	ctx := context.Background()
	if err := store.RecordPlaythrough(ctx, memory.Playthrough{PlayerID: "p", Ending: models.EndingGoodbye}); err != nil {
		t.Fatalf("record: %v", err)
	}

	m := call(t, r, RecallPlayerMemory, Args{PlayerID: "p"}).(MemoryReport)
	if !m.Known || m.Greeting == "" {
		t.Errorf("Expected remembered player with greeting, got %+v", m)
	}

	f := call(t, r, ForgetPlayerMemory, Args{PlayerID: "p"}).(ForgetReport)
	if !f.Forgotten {
		t.Error("Expected forgotten")
	}
	m = call(t, r, RecallPlayerMemory, Args{PlayerID: "p"}).(MemoryReport)
	if m.Known {
		t.Error("Expected player forgotten")
	}

	if _, err := r.Call(ctx, string(RecallPlayerMemory), Args{}); !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Expected ErrMissingArgument, got %v", err)
	}
}

func TestMemoryToolsWithoutStore(t *testing.T) {
	r := NewRegistry(engine.New(engine.KeywordAnalyzer{}, engine.ScriptedNarrator{}), session.NewManager(0), nil)
	if _, err := r.Call(context.Background(), string(RecallPlayerMemory), Args{PlayerID: "p"}); !errors.Is(err, ErrNoMemory) {
		t.Errorf("Expected ErrNoMemory, got %v", err)
	}
}
