package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/story"
)

func TestParseReplies(t *testing.T) {
	text := "```yaml\necho: |\n  We found it!\nshadow: |\n  Quietly now.\n```"
	replies, err := parseReplies(text)
	if err != nil {
		t.Fatalf("Failed to parse replies: %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("Expected 2 replies, got %d", len(replies))
	}
	if replies[0].Speaker != models.CompanionEcho || replies[0].Content != "We found it!" {
		t.Errorf("Unexpected echo reply %+v", replies[0])
	}
	if replies[1].Speaker != models.CompanionShadow {
		t.Errorf("Expected shadow second, got %s", replies[1].Speaker)
	}

	if _, err := parseReplies("echo: \"\"\nshadow: \"\""); err == nil {
		t.Error("Expected empty replies to fail")
	}
}

func TestStripFences(t *testing.T) {
	if got := stripFences("```yaml\nlabel: neutral\n```"); got != "label: neutral" {
		t.Errorf("Expected fences removed, got %q", got)
	}
	if got := stripFences("label: neutral"); got != "label: neutral" {
		t.Errorf("Expected text unchanged, got %q", got)
	}
}

func TestCompanionPrompt(t *testing.T) {
	p := story.NewProgression(0)
	completion := p.Complete(models.RoomAwakening, story.FragmentFor(models.RoomAwakening, ""), p.Timer.StartedAt)
	scene := Scene{
		Room:         p.CurrentRoom(),
		Message:      "it was heavy rain",
		EchoAffinity: 0.5,
		History: []models.Message{
			{Speaker: models.PlayerID, Content: "hello"},
		},
		Sentiment:  Sentiment{Label: LabelPositive, Vulnerable: true},
		Completion: &completion,
	}
	prompt, err := companionPrompt(scene)
	if err != nil {
		t.Fatalf("Failed to render prompt: %v", err)
	}
	for _, want := range []string{"The Memory Archives", "room 2 of 5", "Friends", "The Beginning", "player: hello", "it was heavy rain"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}
}

func TestScriptedNarrator(t *testing.T) {
	ctx := context.Background()
	forced := story.Forced(story.ForcedByDenial)
	tests := []struct {
		name    string
		scene   Scene
		speaker string
	}{
		{"forced", Scene{Ending: &forced}, models.CompanionShadow},
		{"timeout", Scene{Sacrificed: models.CompanionShadow}, models.CompanionEcho},
		{"missing clues", Scene{Puzzle: story.PuzzleResult{Missing: []string{"blog"}}}, models.CompanionShadow},
		{"idle", Scene{}, models.CompanionEcho},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replies, err := ScriptedNarrator{}.Reply(ctx, tt.scene)
			if err != nil {
				t.Fatalf("Reply failed: %v", err)
			}
			if len(replies) == 0 || replies[0].Speaker != tt.speaker {
				t.Errorf("Expected first line from %s, got %+v", tt.speaker, replies)
			}
		})
	}
}

func TestSceneEvents(t *testing.T) {
	s := Scene{Sacrificed: models.CompanionEcho, Rejected: true, Puzzle: story.PuzzleResult{Hint: "look closer"}}
	events := s.Events()
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %v", events)
	}
	if !strings.Contains(events[0], "echo") {
		t.Errorf("Expected sacrifice event to name echo, got %q", events[0])
	}
}
