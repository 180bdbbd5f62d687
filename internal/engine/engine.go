package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

const (
	// historyLimit is how many messages are kept before older ones are summarized.
	historyLimit = 24
	// historyKeep is how many recent messages survive a summarization.
	historyKeep = 8
	// contextWindow is how many messages are shown to the narrator.
	contextWindow = 12
)

// Engine runs the turn pipeline. It owns the live collaborators; games are
// passed in and mutated in place.
type Engine struct {
	gemini     *Gemini
	analyzer   Analyzer
	narrator   Narrator
	summarizer Summarizer
	now        func() time.Time
}

// New builds an engine from explicit collaborators.
func New(analyzer Analyzer, narrator Narrator) *Engine {
	e := &Engine{analyzer: analyzer, narrator: narrator, now: time.Now}
	if s, ok := narrator.(Summarizer); ok {
		e.summarizer = s
	}
	return e
}

// NewEngine connects to Gemini when apiKey is set. Without a key it runs
// offline with keyword sentiment and scripted companions.
func NewEngine(ctx context.Context, apiKey, model string) (*Engine, error) {
	if apiKey == "" {
		log.Printf("[engine] no Gemini API key, running offline")
		return New(KeywordAnalyzer{}, ScriptedNarrator{}), nil
	}
	g, err := NewGemini(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}
	e := New(NewGeminiAnalyzer(g), NewGeminiNarrator(g))
	e.gemini = g
	return e, nil
}

func (e *Engine) Close() {
	if e.gemini != nil {
		e.gemini.Close()
	}
}

// Online reports whether the engine talks to Gemini.
func (e *Engine) Online() bool {
	return e.gemini != nil
}

// TurnResult is the outcome of one player message.
type TurnResult struct {
	Room        models.RoomNumber       `json:"room"`
	Puzzle      story.PuzzleResult      `json:"puzzle"`
	Completion  *story.CompletionResult `json:"completion,omitempty"`
	Timeout     *story.TimeoutResult    `json:"timeout,omitempty"`
	Sentiment   Sentiment               `json:"sentiment"`
	Affinity    map[string]float64      `json:"affinity"`
	Rejected    bool                    `json:"rejected,omitempty"`
	TruthDenied bool                    `json:"truth_denied,omitempty"`
	Ending      *story.Resolution       `json:"ending,omitempty"`
	Narrative   string                  `json:"narrative,omitempty"`
	Replies     []models.Message        `json:"replies"`
}

// ProcessTurn handles one player message: the arena timer, the room puzzle,
// the refusal guards, sentiment and affinity, the ending, and finally the
// companions' replies. Collaborator failures are logged and replaced with
// neutral defaults, so the only errors returned come from a cancelled ctx.
func (e *Engine) ProcessTurn(ctx context.Context, g *session.Game, message string) (*TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Ended() {
		return &TurnResult{
			Room:      g.Progression.Current,
			Affinity:  g.CompanionAffinity(),
			Ending:    g.Ending,
			Narrative: story.NarrativeFor(*g.Ending),
		}, nil
	}

	now := e.now()
	g.History.Add(models.PlayerID, message, now)
	result := &TurnResult{}

	if g.Progression.CheckTimer(now) {
		if t := g.Progression.ResolveTimeout(&g.Choices, now); t.Applied {
			log.Printf("[engine] session %s: arena timer expired, %s sacrificed", g.ID, t.Sacrificed)
			result.Timeout = &t
		}
	}

	room := g.Progression.Current
	result.Room = room
	result.Puzzle = story.CheckPuzzle(room, g.Puzzles, message)

	if result.Puzzle.Complete {
		c := e.completeRoom(g, room, "", now)
		result.Completion = &c
	} else {
		switch {
		case room == models.RoomArchives && story.DetectsRejection(message):
			g.Choices.Record(models.ChoiceRejection)
			result.Rejected = true
		case room == models.RoomTruthChamber && story.DetectsTruthDenial(message):
			g.Choices.Record(models.ChoiceTruthDenial)
			result.TruthDenied = true
		}
	}

	result.Sentiment = e.analyze(ctx, g.ID, message)
	for _, c := range session.Companions {
		g.Affinity.Update(models.PlayerID, c, result.Sentiment.Delta, "sentiment: "+result.Sentiment.Label)
	}
	if result.Sentiment.Vulnerable {
		g.Choices.Record(models.ChoiceVulnerability)
	}
	result.Affinity = g.CompanionAffinity()

	if forced, ok := story.CheckForcedEnding(g.Choices); ok {
		e.end(g, forced)
	} else if g.Progression.Finished() {
		e.end(g, story.Resolve(g.AverageAffinity(), g.Choices))
	}
	if g.Ending != nil {
		result.Ending = g.Ending
		result.Narrative = story.NarrativeFor(*g.Ending)
	}

	scene := Scene{
		Room:           g.Progression.CurrentRoom(),
		Message:        message,
		Summary:        g.History.Summary,
		History:        g.History.ContextWindow(contextWindow),
		EchoAffinity:   result.Affinity[models.CompanionEcho],
		ShadowAffinity: result.Affinity[models.CompanionShadow],
		Sentiment:      result.Sentiment,
		Puzzle:         result.Puzzle,
		Completion:     result.Completion,
		Rejected:       result.Rejected,
		TruthDenied:    result.TruthDenied,
		Ending:         result.Ending,
	}
	if result.Timeout != nil {
		scene.Sacrificed = result.Timeout.Sacrificed
	}
	result.Replies = e.reply(ctx, g, scene)
	for _, m := range result.Replies {
		g.History.Add(m.Speaker, m.Content, now)
	}

	e.compactHistory(ctx, g)
	g.UpdatedAt = now
	return result, nil
}

func (e *Engine) analyze(ctx context.Context, sessionID, message string) Sentiment {
	s, err := e.analyzer.Analyze(ctx, message)
	if err != nil {
		log.Printf("[engine] session %s: sentiment analysis failed, using neutral: %v", sessionID, err)
		return NeutralSentiment()
	}
	return s
}

func (e *Engine) reply(ctx context.Context, g *session.Game, scene Scene) []models.Message {
	replies, err := e.narrator.Reply(ctx, scene)
	if err == nil && len(replies) > 0 {
		return replies
	}
	if err != nil {
		log.Printf("[engine] session %s: narration failed, using scripted lines: %v", g.ID, err)
	}
	replies, _ = ScriptedNarrator{}.Reply(ctx, scene)
	return replies
}

func (e *Engine) compactHistory(ctx context.Context, g *session.Game) {
	if e.summarizer == nil || len(g.History.Messages) <= historyLimit {
		return
	}
	cut := len(g.History.Messages) - historyKeep
	summary, err := e.summarizer.Summarize(ctx, g.History.Summary, g.History.Messages[:cut])
	if err != nil {
		log.Printf("[engine] session %s: failed to summarize history: %v", g.ID, err)
		return
	}
	g.History.Summary = summary
	g.History.Messages = append([]models.Message(nil), g.History.Messages[cut:]...)
}

func (e *Engine) end(g *session.Game, r story.Resolution) {
	g.Ending = &r
	log.Printf("[engine] session %s: ending %s (confidence %.2f): %s", g.ID, r.Ending, r.Confidence, r.Reasoning)
}

// completeRoom finishes room n and applies the choices a completion implies.
func (e *Engine) completeRoom(g *session.Game, n models.RoomNumber, fragmentChoice string, now time.Time) story.CompletionResult {
	c := g.Progression.Complete(n, story.FragmentFor(n, fragmentChoice), now)
	if c.Completed && n == models.RoomTruthChamber {
		g.Choices.Record(models.ChoiceAcceptTruth)
	}
	return c
}

// ClueView is the result of examining a clue.
type ClueView struct {
	Room    models.RoomNumber    `json:"room"`
	Clue    string               `json:"clue"`
	Found   bool                 `json:"found"`
	New     bool                 `json:"newly_viewed,omitempty"`
	Text    string               `json:"text,omitempty"`
	Reason  string               `json:"reason,omitempty"`
	Viewed  []string             `json:"viewed"`
	Missing []string             `json:"missing,omitempty"`
	Timeout *story.TimeoutResult `json:"timeout,omitempty"`
}

// ViewClue reveals a clue in room n, or in the current room when n is zero.
// Viewing the same clue again returns the text without changing state. An
// expired arena timer is resolved first; an ended game changes nothing.
func (e *Engine) ViewClue(g *session.Game, n models.RoomNumber, clue string) ClueView {
	if g.Ended() {
		return ClueView{Room: n, Clue: clue, Reason: "the story has already ended"}
	}
	var timeout *story.TimeoutResult
	if now := e.now(); g.Progression.CheckTimer(now) {
		if t := g.Progression.ResolveTimeout(&g.Choices, now); t.Applied {
			log.Printf("[engine] session %s: arena timer expired, %s sacrificed", g.ID, t.Sacrificed)
			timeout = &t
		}
	}
	if n == 0 {
		n = g.Progression.Current
	}
	v := ClueView{Room: n, Clue: clue, Timeout: timeout}
	room, err := g.Progression.Room(n)
	if err != nil {
		v.Reason = err.Error()
		return v
	}
	key := story.ClueKey(n)
	if !room.Unlocked {
		v.Reason = fmt.Sprintf("%s is locked", room.Name)
		v.Viewed = g.Puzzles.Clues(key)
		return v
	}
	text, ok := story.ClueText(n, clue)
	if !ok {
		v.Reason = fmt.Sprintf("There is no %q in %s", clue, room.Name)
		v.Missing = g.Puzzles.Missing(key, room.RequiredClues)
		v.Viewed = g.Puzzles.Clues(key)
		return v
	}
	v.Found = true
	v.Text = text
	v.New = g.Puzzles.View(key, clue)
	v.Missing = g.Puzzles.Missing(key, room.RequiredClues)
	v.Viewed = g.Puzzles.Clues(key)
	g.UpdatedAt = e.now()
	return v
}

// CheckPuzzle evaluates message against the current room without changing
// state.
func (e *Engine) CheckPuzzle(g *session.Game, message string) story.PuzzleResult {
	return story.CheckPuzzle(g.Progression.Current, g.Puzzles, message)
}

// UnlockResult is the outcome of a companion-initiated room advance.
type UnlockResult struct {
	Unlocked   bool                    `json:"success"`
	Reason     string                  `json:"reason,omitempty"`
	Missing    []string                `json:"missing_clues,omitempty"`
	Completion *story.CompletionResult `json:"completion,omitempty"`
	Timeout    *story.TimeoutResult    `json:"timeout,omitempty"`
}

// UnlockNext completes the current room and opens the next one, once the
// room's clues have all been examined. fragmentChoice selects among a room's
// alternative fragments and may be empty.
func (e *Engine) UnlockNext(g *session.Game, reason, fragmentChoice string) UnlockResult {
	if g.Ended() {
		return UnlockResult{Reason: "the story has already ended"}
	}
	now := e.now()
	var out UnlockResult
	if g.Progression.CheckTimer(now) {
		if t := g.Progression.ResolveTimeout(&g.Choices, now); t.Applied {
			out.Timeout = &t
		}
	}

	room := g.Progression.CurrentRoom()
	if room.Number == models.RoomExit {
		out.Reason = "Already at the final room. Make your final choice."
		return out
	}
	if missing := g.Puzzles.Missing(story.ClueKey(room.Number), room.RequiredClues); len(missing) > 0 {
		out.Reason = fmt.Sprintf("%s still has unexamined clues", room.Name)
		out.Missing = missing
		return out
	}

	c := e.completeRoom(g, room.Number, fragmentChoice, now)
	if !c.Completed {
		out.Reason = c.Reason
		return out
	}
	log.Printf("[engine] session %s: %s unlocked (%s)", g.ID, c.Next.Name, reason)
	out.Unlocked = true
	out.Completion = &c
	g.UpdatedAt = now
	return out
}

// RecordChoice applies one named choice. It returns the forced ending if the
// choice tripped a refusal guard.
func (e *Engine) RecordChoice(g *session.Game, kind models.ChoiceKind) *story.Resolution {
	if g.Ended() {
		return g.Ending
	}
	g.Choices.Record(kind)
	g.UpdatedAt = e.now()
	if forced, ok := story.CheckForcedEnding(g.Choices); ok {
		e.end(g, forced)
		return g.Ending
	}
	return nil
}

// PredictEnding reports the ending the current state would produce.
func (e *Engine) PredictEnding(g *session.Game) story.Resolution {
	if g.Ended() {
		return *g.Ending
	}
	if forced, ok := story.CheckForcedEnding(g.Choices); ok {
		return forced
	}
	return story.Resolve(g.AverageAffinity(), g.Choices)
}

// Status summarizes a game's progress.
func (e *Engine) Status(g *session.Game) story.Summary {
	g.Progression.CheckTimer(e.now())
	return g.Progression.Summarize(g.Choices, e.now())
}

// Analyze runs the sentiment collaborator with the neutral fallback applied.
// It does not touch any game.
func (e *Engine) Analyze(ctx context.Context, message string) Sentiment {
	return e.analyze(ctx, "-", message)
}
