package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

func sampleGame() *session.Game {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	g := session.NewGame("journal-test", "player-1", 0, now)
	g.Progression.Complete(models.RoomAwakening, story.FragmentFor(models.RoomAwakening, ""), now)
	g.Affinity.Update(models.PlayerID, models.CompanionEcho, 0.45, "test")
	g.History.Add(models.PlayerID, "It was raining that day… I remember now.", now)
	g.History.Add(models.CompanionEcho, "You’re remembering. That’s good.", now)
	return g
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleGame()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("Expected PDF header, got %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestWriteWithEnding(t *testing.T) {
	g := sampleGame()
	res := story.Forced(story.ForcedByRejection)
	g.Ending = &res

	var buf bytes.Buffer
	if err := Write(&buf, g); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("Expected non-empty PDF")
	}
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "journal.pdf")
	if err := Export(path, sampleGame()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Expected journal file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected journal file to have content")
	}
}
