package session

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/story"
)

var now = time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	g := NewGame("abc", "player-1", 5*time.Minute, now)
	g.Progression.Complete(models.RoomAwakening, story.FragmentFor(models.RoomAwakening, ""), now)
	g.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.05, "kind words")
	g.Choices.Record(models.ChoiceVulnerability)
	g.Puzzles.View(story.ClueKey(models.RoomArchives), "blog")
	g.History.Add(models.PlayerID, "hello", now)
	res := story.Resolve(0.1, g.Choices)
	g.Ending = &res

	if err := store.Save(g); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	g2, err := store.Load("abc")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}

	if g2.PlayerID != "player-1" {
		t.Errorf("Expected player-1, got %s", g2.PlayerID)
	}
	if g2.Progression.Current != models.RoomArchives {
		t.Errorf("Expected current room 2, got %d", g2.Progression.Current)
	}
	if got := g2.Affinity.Get(models.CompanionEcho, models.PlayerID); got != 0.05 {
		t.Errorf("Expected affinity 0.05, got %v", got)
	}
	if len(g2.Affinity.History) != 1 {
		t.Errorf("Expected 1 affinity change, got %d", len(g2.Affinity.History))
	}
	if g2.Choices.VulnerabilityCount != 1 {
		t.Errorf("Expected vulnerability count 1, got %d", g2.Choices.VulnerabilityCount)
	}
	if !g2.Puzzles.Has(story.ClueKey(models.RoomArchives), "blog") {
		t.Error("Expected viewed clue to survive")
	}
	if len(g2.History.Messages) != 1 {
		t.Errorf("Expected 1 history message, got %d", len(g2.History.Messages))
	}
	if g2.Ending == nil || g2.Ending.Ending != models.EndingReset {
		t.Errorf("Expected RESET ending, got %+v", g2.Ending)
	}
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Load("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	store := NewStore(t.TempDir() + "/saves")
	list, err := store.List()
	if err != nil || len(list) != 0 {
		t.Fatalf("Expected empty list for missing dir, got %v, %v", list, err)
	}

	older := NewGame("old", "p", 0, now)
	newer := NewGame("new", "p", 0, now)
	newer.UpdatedAt = now.Add(time.Hour)
	for _, g := range []*Game{older, newer} {
		if err := store.Save(g); err != nil {
			t.Fatalf("Failed to save %s: %v", g.ID, err)
		}
	}

	list, err = store.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" {
		t.Errorf("Expected newest first, got %+v", list)
	}

	if err := store.Delete("old"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	list, _ = store.List()
	if len(list) != 1 {
		t.Errorf("Expected 1 session after delete, got %d", len(list))
	}
}

func TestManagerIsolatesSessions(t *testing.T) {
	m := NewManager(0)
	a := m.Create("alice")
	b := m.Create("bob")
	if a.ID == b.ID {
		t.Fatal("Expected distinct session ids")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.With(a.ID, func(g *Game) error {
				g.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.01, "")
				return nil
			})
		}()
	}
	wg.Wait()

	if got := len(a.Affinity.History); got != 50 {
		t.Errorf("Expected 50 updates on a, got %d", got)
	}
	if got := b.Affinity.Get(models.PlayerID, models.CompanionEcho); got != 0 {
		t.Errorf("Expected b untouched, got %v", got)
	}
	if got := len(m.IDs()); got != 2 {
		t.Errorf("Expected 2 sessions, got %d", got)
	}

	m.Delete(a.ID)
	if err := m.With(a.ID, func(*Game) error { return nil }); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound from With, got %v", err)
	}
}

func TestAverageAffinity(t *testing.T) {
	g := NewGame("x", "p", 0, now)
	g.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.6, "")
	g.Affinity.Update(models.PlayerID, models.CompanionShadow, 0.2, "")
	if got := g.AverageAffinity(); got < 0.399 || got > 0.401 {
		t.Errorf("Expected average 0.4, got %v", got)
	}
	if g.Ended() {
		t.Error("Expected new game not to be ended")
	}
}

func TestContextWindow(t *testing.T) {
	var h History
	for i := 0; i < 5; i++ {
		h.Add(models.PlayerID, "m", now)
	}
	if got := len(h.ContextWindow(3)); got != 3 {
		t.Errorf("Expected 3 messages, got %d", got)
	}
	if got := len(h.ContextWindow(0)); got != 5 {
		t.Errorf("Expected all 5 messages, got %d", got)
	}
}

func TestSaveOverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	g := NewGame("abc", "p", 0, now)
	if err := store.Save(g); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	// A stale staging directory from an earlier crash must not leak into the save.
	if err := os.MkdirAll(filepath.Join(dir, ".abc.tmp"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".abc.tmp", "choices.yaml"), []byte("garbage: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	g.Progression.Complete(models.RoomAwakening, nil, now)
	g.Choices.Record(models.ChoiceAcceptTruth)
	if err := store.Save(g); err != nil {
		t.Fatalf("Failed to overwrite: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "abc" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only the committed save, got %v", names)
	}
	loaded, err := store.Load("abc")
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Progression.Current != models.RoomArchives || !loaded.Choices.AcceptedTruth {
		t.Errorf("Expected the second save, got room %d and %+v", loaded.Progression.Current, loaded.Choices)
	}
}

func TestLoadFallsBackToPreviousSave(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	g := NewGame("abc", "p", 0, now)
	if err := store.Save(g); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	// Interrupted between moving the old save aside and committing the new one.
	if err := os.Rename(filepath.Join(dir, "abc"), filepath.Join(dir, ".abc.old")); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load("abc")
	if err != nil {
		t.Fatalf("Expected the previous save to load, got %v", err)
	}
	if loaded.ID != "abc" {
		t.Errorf("Expected abc, got %s", loaded.ID)
	}
	list, err := store.List()
	if err != nil || len(list) != 1 || list[0].ID != "abc" {
		t.Errorf("Expected the previous save listed once, got %+v, %v", list, err)
	}

	if err := store.Save(g); err != nil {
		t.Fatalf("Failed to save over the recovered session: %v", err)
	}
	if list, _ := store.List(); len(list) != 1 {
		t.Errorf("Expected one session after saving again, got %d", len(list))
	}
}

func TestLoadRejectsCorruptProgression(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	if err := store.Save(NewGame("abc", "p", 0, now)); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "abc", "progression.yaml"), []byte("current: 0\nrooms: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("abc"); !errors.Is(err, story.ErrCorruptProgression) {
		t.Errorf("Expected ErrCorruptProgression, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewGame("abc", "p", 0, now)
	g.Puzzles.View(story.ClueKey(models.RoomAwakening), "newspaper")
	g.History.Add(models.PlayerID, "hi", now)

	c := g.Clone()
	c.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.5, "")
	c.Puzzles.View(story.ClueKey(models.RoomAwakening), "calendar")
	c.History.Add(models.PlayerID, "again", now)
	c.Progression.Complete(models.RoomAwakening, nil, now)
	r := story.Forced(story.ForcedByDenial)
	c.Ending = &r

	if got := g.Affinity.Get(models.PlayerID, models.CompanionEcho); got != 0 {
		t.Errorf("Expected original affinity 0, got %v", got)
	}
	if got := len(g.Puzzles.Clues(story.ClueKey(models.RoomAwakening))); got != 1 {
		t.Errorf("Expected 1 original clue, got %d", got)
	}
	if len(g.History.Messages) != 1 || g.Progression.Current != models.RoomAwakening || g.Ended() {
		t.Error("Expected the original game untouched")
	}
	if c.ID != g.ID || len(c.History.Messages) != 2 {
		t.Errorf("Expected the clone to carry its own changes, got %+v", c.History)
	}
}
