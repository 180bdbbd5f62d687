package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	dir := t.TempDir()
	m := NewModel(Options{
		Engine:    engine.New(engine.KeywordAnalyzer{}, engine.ScriptedNarrator{}),
		Saves:     session.NewStore(filepath.Join(dir, "saves")),
		PlayerID:  "player-1",
		ExportDir: filepath.Join(dir, "exports"),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	next, _ = next.(model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(model)
}

func enter(t *testing.T, m model, input string) (model, tea.Cmd) {
	t.Helper()
	m.textInput.SetValue(input)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(model), cmd
}

func TestStartsGame(t *testing.T) {
	m := newTestModel(t)
	if m.state != statePlaying || m.game == nil {
		t.Fatalf("Expected a game in progress, got state %d", m.state)
	}
	if !strings.Contains(m.gameLog, "The Awakening Chamber") {
		t.Error("Expected the first room in the log")
	}
}

func TestViewCommand(t *testing.T) {
	m := newTestModel(t)
	m, _ = enter(t, m, "/view newspaper")
	if !m.game.Puzzles.Has("room1_clues_found", "newspaper") {
		t.Error("Expected newspaper recorded as viewed")
	}

	before := m.gameLog
	m, _ = enter(t, m, "/view unicorn")
	if m.gameLog == before {
		t.Error("Expected a message for an unknown clue")
	}
}

func TestChooseCommand(t *testing.T) {
	m := newTestModel(t)
	m, _ = enter(t, m, "/choose sacrifice_shadow")
	if m.game.Choices.SacrificedAI != models.CompanionShadow {
		t.Errorf("Expected shadow sacrificed, got %q", m.game.Choices.SacrificedAI)
	}
	m, _ = enter(t, m, "/choose rejection")
	if m.game.Choices.RejectionCount != 0 {
		t.Error("Expected guard counters not choosable from the prompt")
	}
}

func TestTurnRoundTrip(t *testing.T) {
	m := newTestModel(t)
	m, cmd := enter(t, m, "hello, where am I?")
	if !m.busy || cmd == nil {
		t.Fatal("Expected a pending turn")
	}

	msg := m.processTurn("hello, where am I?")()
	next, _ := m.Update(msg)
	m = next.(model)
	if m.busy {
		t.Error("Expected turn to finish")
	}
	if !strings.Contains(m.gameLog, "Echo:") && !strings.Contains(m.gameLog, "Shadow:") {
		t.Error("Expected a companion reply in the log")
	}
	if _, err := os.Stat(filepath.Join(m.opts.Saves.Dir, m.game.ID, "game.yaml")); err != nil {
		t.Errorf("Expected the session saved: %v", err)
	}
}

func TestTurnRunsOnCopy(t *testing.T) {
	m := newTestModel(t)
	m, _ = enter(t, m, "/view newspaper")
	m, _ = enter(t, m, "It was heavy rain that night")
	if !m.busy {
		t.Fatal("Expected a pending turn")
	}
	before := m.game

	done := make(chan tea.Msg)
	go func() { done <- m.processTurn("It was heavy rain that night")() }()
	var msg tea.Msg
	for msg == nil {
		select {
		case msg = <-done:
		default:
			_ = m.View()
		}
	}

	if before.Progression.Current != models.RoomAwakening || len(before.History.Messages) != 0 {
		t.Error("Expected the displayed game untouched while the turn runs")
	}
	next, _ := m.Update(msg)
	m = next.(model)
	if m.game == before {
		t.Error("Expected the played game swapped in")
	}
	if m.game.Progression.Current != models.RoomArchives {
		t.Errorf("Expected room 2 after the answer, got %d", m.game.Progression.Current)
	}
	if !m.game.Puzzles.Has("room1_clues_found", "newspaper") {
		t.Error("Expected viewed clues carried into the played game")
	}
}

func TestStaleTurnIgnored(t *testing.T) {
	m := newTestModel(t)
	m, _ = enter(t, m, "hello")
	msg := m.processTurn("hello")()
	m.busy = false
	m, _ = enter(t, m, "/restart")
	current := m.game

	next, _ := m.Update(msg)
	if next.(model).game != current {
		t.Error("Expected a turn from the previous game to be dropped")
	}
}

func TestExportCommand(t *testing.T) {
	m := newTestModel(t)
	m, _ = enter(t, m, "/export")
	if _, err := os.Stat(filepath.Join(m.opts.ExportDir, m.game.ID+".pdf")); err != nil {
		t.Errorf("Expected journal exported: %v", err)
	}
}

func TestRestartCommand(t *testing.T) {
	m := newTestModel(t)
	first := m.game.ID
	m, _ = enter(t, m, "/restart")
	if m.game.ID == first {
		t.Error("Expected a fresh game after restart")
	}
}
