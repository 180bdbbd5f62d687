package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"play": false, "mcp": false, "sessions": false, "export": false, "forget": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Expected command %q", name)
		}
	}
}

func TestPrintSessions(t *testing.T) {
	var buf bytes.Buffer
	if err := printSessions(&buf, nil); err != nil {
		t.Fatalf("printSessions failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No saved sessions") {
		t.Errorf("Expected empty message, got %q", buf.String())
	}

	buf.Reset()
	summaries := []session.Summary{
		{ID: "abc", PlayerID: "p1", Ending: models.EndingMerger, UpdatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		{ID: "def", PlayerID: "p1"},
	}
	if err := printSessions(&buf, summaries); err != nil {
		t.Fatalf("printSessions failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "abc", "MERGER", "2026-05-01 10:00", "def"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestLoadAndSaveSessions(t *testing.T) {
	saves := session.NewStore(t.TempDir())
	g := session.NewGame("saved-1", "p1", 0, time.Now())
	if err := saves.Save(g); err != nil {
		t.Fatalf("save: %v", err)
	}

	sessions := session.NewManager(0)
	if err := loadSessions(saves, sessions); err != nil {
		t.Fatalf("loadSessions failed: %v", err)
	}
	if ids := sessions.IDs(); len(ids) != 1 || ids[0] != "saved-1" {
		t.Fatalf("Expected saved-1 loaded, got %v", ids)
	}

	_ = sessions.With("saved-1", func(g *session.Game) error {
		r := story.Forced(story.ForcedByDenial)
		g.Ending = &r
		return nil
	})
	saveSessions(saves, sessions)
	loaded, err := saves.Load("saved-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Ending == nil || loaded.Ending.Ending != models.EndingReset {
		t.Errorf("Expected ending persisted, got %+v", loaded.Ending)
	}
}
