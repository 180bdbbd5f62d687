package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/echo-rooms/internal/config"
	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
	"google.golang.org/api/option"
)

const maxTurns = 30

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Offline() {
		log.Fatalf("GEMINI_API_KEY is required to simulate a player")
	}

	// The engine voices Echo and Shadow.
	eng, err := engine.NewEngine(ctx, cfg.GeminiAPIKey, cfg.Model)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create player client: %v", err)
	}
	defer playerClient.Close()
	playerModel := playerClient.GenerativeModel(cfg.Model)

	g := session.NewGame("simulation", "simulated-player", 0, time.Now())
	saves := session.NewStore(cfg.SaveDir)
	chose := false

	for turn := 1; turn <= maxTurns; turn++ {
		room := g.Progression.CurrentRoom()
		fmt.Printf("--- Turn %d: %s ---\n", turn, room.Name)

		// A real player clicks through the clues before answering.
		for _, clue := range room.Clues() {
			if v := eng.ViewClue(g, room.Number, clue); v.New {
				fmt.Printf("Viewed clue %s\n", clue)
			}
		}
		if room.Number == models.RoomTestingArena && !chose {
			chose = true
			choice := getPlayerChoice(ctx, playerModel, g)
			eng.RecordChoice(g, choice)
			fmt.Printf("Player choice: %s\n", choice)
		}

		message := getPlayerMessage(ctx, playerModel, g)
		fmt.Printf("Player: %s\n", message)

		result, err := eng.ProcessTurn(ctx, g, message)
		if err != nil {
			fmt.Printf("Error processing turn: %v\n", err)
			break
		}
		for _, reply := range result.Replies {
			fmt.Printf("%s: %s\n", reply.Speaker, reply.Content)
		}
		fmt.Printf("Sentiment: %s (%+.2f), affinity echo=%.2f shadow=%.2f\n",
			result.Sentiment.Label, result.Sentiment.Delta,
			result.Affinity[models.CompanionEcho], result.Affinity[models.CompanionShadow])
		if c := result.Completion; c != nil && c.Fragment != nil {
			fmt.Printf("RECOVERED: %s\n", c.Fragment.Title)
		}
		fmt.Println()

		if result.Ending != nil {
			fmt.Printf("Game Ended: %s\n%s\n", story.Title(result.Ending.Ending), result.Narrative)
			break
		}
	}

	if err := saves.Save(g); err != nil {
		log.Printf("Failed to save simulation: %v", err)
	}
}

func transcript(g *session.Game) string {
	var b strings.Builder
	for _, m := range g.History.ContextWindow(12) {
		fmt.Fprintf(&b, "%s: %s\n", m.Speaker, m.Content)
	}
	return b.String()
}

func cluesText(g *session.Game) string {
	room := g.Progression.CurrentRoom()
	var b strings.Builder
	for _, clue := range room.Clues() {
		if text, ok := story.ClueText(room.Number, clue); ok {
			fmt.Fprintf(&b, "[%s]\n%s\n", clue, text)
		}
	}
	return b.String()
}

func getPlayerMessage(ctx context.Context, model *genai.GenerativeModel, g *session.Game) string {
	room := g.Progression.CurrentRoom()
	prompt := fmt.Sprintf(`You are playing a narrative escape-room game with two AI companions, Echo and Shadow.
Room: %s
Objective: %s
Hint: %s

Clues you have examined:
%s

Conversation so far:
%s

Write your next message to the companions. Be warm and honest with them, and try to solve the room.
Return ONLY the message, no extra commentary.`,
		room.Name, room.Objective, story.RoomHint(room.Number), cluesText(g), transcript(g))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "What should we look at next?"
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "Tell me more about this room."
	}
	return strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
}

func getPlayerChoice(ctx context.Context, model *genai.GenerativeModel, g *session.Game) models.ChoiceKind {
	prompt := fmt.Sprintf(`In the Testing Arena only one companion can be kept running. Echo is warm and hopeful, Shadow is guarded and honest.

Conversation so far:
%s

Answer with exactly one of: sacrifice_echo, sacrifice_shadow, refuse_sacrifice`, transcript(g))

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return models.ChoiceRefuseSacrifice
	}
	answer := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if kind, ok := models.ParseChoiceKind(answer); ok {
		return kind
	}
	return models.ChoiceRefuseSacrifice
}
