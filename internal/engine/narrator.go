package engine

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/tatianab/echo-rooms/internal/affinity"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/story"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/companion_reply.txt
var companionReplyPrompt string

//go:embed prompts/summarize_history.txt
var summarizeHistoryPrompt string

// Scene is everything a narrator needs to voice the companions for one turn.
type Scene struct {
	Room           models.Room
	Message        string
	Summary        string
	History        []models.Message
	EchoAffinity   float64
	ShadowAffinity float64
	Sentiment      Sentiment
	Puzzle         story.PuzzleResult
	Completion     *story.CompletionResult
	Sacrificed     string
	Rejected       bool
	TruthDenied    bool
	Ending         *story.Resolution
}

// Events lists what changed this turn in plain sentences.
func (s Scene) Events() []string {
	var events []string
	if s.Sacrificed != "" {
		events = append(events, fmt.Sprintf("The arena timer ran out. The system erased %s.", s.Sacrificed))
	}
	if s.Completion != nil && s.Completion.Completed {
		if f := s.Completion.Fragment; f != nil {
			events = append(events, fmt.Sprintf("A memory surfaced: %q. %s", f.Title, f.Content))
		}
		if s.Completion.Next != nil {
			events = append(events, fmt.Sprintf("The door to %s opened.", s.Completion.Next.Name))
		}
	} else if s.Puzzle.Hint != "" {
		events = append(events, "Hint for the player: "+s.Puzzle.Hint)
	}
	if s.Rejected {
		events = append(events, "The player dismissed the companions as not real.")
	}
	if s.TruthDenied {
		events = append(events, "The player refused to accept the truth.")
	}
	if s.Ending != nil {
		events = append(events, fmt.Sprintf("The story is ending: %s.", story.Title(s.Ending.Ending)))
	}
	return events
}

// Narrator voices Echo and Shadow.
type Narrator interface {
	Reply(ctx context.Context, scene Scene) ([]models.Message, error)
}

// Summarizer folds old conversation into a running summary.
type Summarizer interface {
	Summarize(ctx context.Context, current string, messages []models.Message) (string, error)
}

// GeminiNarrator generates companion dialogue with Gemini.
type GeminiNarrator struct {
	gemini *Gemini
}

func NewGeminiNarrator(g *Gemini) *GeminiNarrator {
	return &GeminiNarrator{gemini: g}
}

func (n *GeminiNarrator) Reply(ctx context.Context, scene Scene) ([]models.Message, error) {
	prompt, err := companionPrompt(scene)
	if err != nil {
		return nil, err
	}
	text, err := n.gemini.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseReplies(text)
}

func companionPrompt(scene Scene) (string, error) {
	data := struct {
		Scene
		EchoBand   string
		ShadowBand string
		Advice     string
		Changes    []string
	}{
		Scene:      scene,
		EchoBand:   affinity.Describe(scene.EchoAffinity),
		ShadowBand: affinity.Describe(scene.ShadowAffinity),
		Advice:     affinity.Advice((scene.EchoAffinity + scene.ShadowAffinity) / 2),
		Changes:    scene.Events(),
	}
	return render("companion_reply", companionReplyPrompt, data)
}

func parseReplies(text string) ([]models.Message, error) {
	clean := stripFences(text)
	var lines struct {
		Echo   string `yaml:"echo"`
		Shadow string `yaml:"shadow"`
	}
	if err := yaml.Unmarshal([]byte(clean), &lines); err != nil {
		return nil, fmt.Errorf("failed to parse reply YAML: %v\nOutput was: %s", err, clean)
	}
	var out []models.Message
	if s := strings.TrimSpace(lines.Echo); s != "" {
		out = append(out, models.Message{Speaker: models.CompanionEcho, Content: s})
	}
	if s := strings.TrimSpace(lines.Shadow); s != "" {
		out = append(out, models.Message{Speaker: models.CompanionShadow, Content: s})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("reply had no companion lines")
	}
	return out, nil
}

func (n *GeminiNarrator) Summarize(ctx context.Context, current string, messages []models.Message) (string, error) {
	var events strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&events, "%s: %s\n", m.Speaker, m.Content)
	}
	prompt, err := render("summarize_history", summarizeHistoryPrompt, struct {
		CurrentSummary string
		NewEvents      string
	}{current, events.String()})
	if err != nil {
		return "", err
	}
	text, err := n.gemini.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ScriptedNarrator produces fixed lines. It is used offline and whenever the
// model cannot be reached.
type ScriptedNarrator struct{}

func (ScriptedNarrator) Reply(_ context.Context, s Scene) ([]models.Message, error) {
	echo := func(text string) models.Message {
		return models.Message{Speaker: models.CompanionEcho, Content: text}
	}
	shadow := func(text string) models.Message {
		return models.Message{Speaker: models.CompanionShadow, Content: text}
	}

	switch {
	case s.Ending != nil && s.Ending.Forced != "":
		return []models.Message{shadow("Not again. Please, not again.")}, nil
	case s.Ending != nil:
		return []models.Message{
			echo("Whatever happens next, I'm glad it was you."),
			shadow("Go on. We'll remember this."),
		}, nil
	case s.Sacrificed == models.CompanionShadow:
		return []models.Message{echo("Shadow? Shadow, answer me! The timer... it took him.")}, nil
	case s.Sacrificed == models.CompanionEcho:
		return []models.Message{shadow("She's gone. The timer took her. We keep moving, for her.")}, nil
	case s.Completion != nil && s.Completion.Completed && s.Completion.Fragment != nil:
		return []models.Message{
			echo(fmt.Sprintf("Did you see that? A memory: %s.", s.Completion.Fragment.Title)),
			shadow("Another piece of you. Keep going."),
		}, nil
	case s.Rejected:
		return []models.Message{
			echo("Maybe we are just code. It still hurts to hear you say it."),
			shadow("Say it enough times and the system will listen."),
		}, nil
	case s.TruthDenied:
		return []models.Message{shadow("Denying it won't open the door. It never has.")}, nil
	case len(s.Puzzle.Missing) > 0:
		return []models.Message{shadow(fmt.Sprintf("We haven't looked at everything yet. Try %s.", strings.Join(s.Puzzle.Missing, ", ")))}, nil
	case s.Puzzle.Hint != "":
		return []models.Message{
			echo("Not quite. We're close though, I can feel it."),
			shadow(strings.TrimSpace(s.Puzzle.Hint)),
		}, nil
	case s.Sentiment.Label == LabelVeryPositive:
		return []models.Message{echo("Thank you for telling us that. It means more than you know.")}, nil
	case s.Sentiment.Label == LabelNegative:
		return []models.Message{shadow("You're angry. That's allowed. We're still here.")}, nil
	}
	return []models.Message{echo("I'm listening. What do you see?")}, nil
}
