package tools

import (
	"context"
	"fmt"

	"github.com/tatianab/echo-rooms/internal/affinity"
	"github.com/tatianab/echo-rooms/internal/engine"
	"github.com/tatianab/echo-rooms/internal/memory"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/session"
	"github.com/tatianab/echo-rooms/internal/story"
)

// AffinityReport is returned by check_relationship_affinity.
type AffinityReport struct {
	CompanionID string  `json:"companion_id"`
	TargetID    string  `json:"target_id"`
	Affinity    float64 `json:"affinity"`
	Description string  `json:"description"`
	Advice      string  `json:"advice"`
}

func (r *Registry) checkRelationshipAffinity(_ context.Context, args Args) (any, error) {
	if err := required("companion_id", args.CompanionID); err != nil {
		return nil, err
	}
	target := args.TargetID
	if target == "" {
		target = models.PlayerID
	}
	return r.withGame(args, func(g *session.Game) (any, error) {
		score := g.Affinity.Get(args.CompanionID, target)
		return AffinityReport{
			CompanionID: args.CompanionID,
			TargetID:    target,
			Affinity:    score,
			Description: affinity.Describe(score),
			Advice:      affinity.Advice(score),
		}, nil
	})
}

// SentimentReport is returned by analyze_player_sentiment.
type SentimentReport struct {
	engine.Sentiment
	CompanionID string `json:"companion_id,omitempty"`
	Advice      string `json:"advice"`
}

func (r *Registry) analyzePlayerSentiment(ctx context.Context, args Args) (any, error) {
	if err := required("message", args.Message); err != nil {
		return nil, err
	}
	s := r.engine.Analyze(ctx, args.Message)
	return SentimentReport{Sentiment: s, CompanionID: args.CompanionID, Advice: s.Advice()}, nil
}

func (r *Registry) checkRoomProgress(_ context.Context, args Args) (any, error) {
	return r.withGame(args, func(g *session.Game) (any, error) {
		return r.engine.Status(g), nil
	})
}

func (r *Registry) viewClue(_ context.Context, args Args) (any, error) {
	if err := required("clue", args.Clue); err != nil {
		return nil, err
	}
	return r.withGame(args, func(g *session.Game) (any, error) {
		return r.engine.ViewClue(g, models.RoomNumber(args.Room), args.Clue), nil
	})
}

func (r *Registry) checkPuzzle(_ context.Context, args Args) (any, error) {
	if err := required("message", args.Message); err != nil {
		return nil, err
	}
	return r.withGame(args, func(g *session.Game) (any, error) {
		return r.engine.CheckPuzzle(g, args.Message), nil
	})
}

func (r *Registry) unlockNextRoom(_ context.Context, args Args) (any, error) {
	return r.withGame(args, func(g *session.Game) (any, error) {
		return r.engine.UnlockNext(g, args.Reason, args.Fragment), nil
	})
}

// ChoiceReport is returned by record_player_choice.
type ChoiceReport struct {
	Recorded    bool                `json:"recorded"`
	ChoiceType  string              `json:"choice_type"`
	ChoiceValue string              `json:"choice_value,omitempty"`
	Choices     models.ChoiceLedger `json:"current_choices"`
	Ending      *story.Resolution   `json:"ending,omitempty"`
}

func (r *Registry) recordPlayerChoice(_ context.Context, args Args) (any, error) {
	kind, ok := models.ParseChoiceKind(args.ChoiceType)
	if !ok {
		return nil, fmt.Errorf("choice_type %q: expected one of %v", args.ChoiceType, models.ChoiceKinds())
	}
	return r.withGame(args, func(g *session.Game) (any, error) {
		ending := r.engine.RecordChoice(g, kind)
		return ChoiceReport{
			Recorded:    true,
			ChoiceType:  string(kind),
			ChoiceValue: args.ChoiceValue,
			Choices:     g.Choices,
			Ending:      ending,
		}, nil
	})
}

// Prediction is returned by get_ending_prediction.
type Prediction struct {
	story.Resolution
	Title      string             `json:"title"`
	Affinities map[string]float64 `json:"current_affinities"`
}

func (r *Registry) getEndingPrediction(_ context.Context, args Args) (any, error) {
	return r.withGame(args, func(g *session.Game) (any, error) {
		res := r.engine.PredictEnding(g)
		return Prediction{
			Resolution: res,
			Title:      story.Title(res.Ending),
			Affinities: g.CompanionAffinity(),
		}, nil
	})
}

// MemoryReport is returned by recall_player_memory.
type MemoryReport struct {
	memory.Recollection
	Greeting string `json:"greeting,omitempty"`
}

func (r *Registry) recallPlayerMemory(ctx context.Context, args Args) (any, error) {
	if r.memory == nil {
		return nil, ErrNoMemory
	}
	if err := required("player_id", args.PlayerID); err != nil {
		return nil, err
	}
	rec, err := r.memory.Recall(ctx, args.PlayerID)
	if err != nil {
		return nil, err
	}
	return MemoryReport{Recollection: rec, Greeting: rec.Greeting()}, nil
}

// ForgetReport is returned by forget_player_memory.
type ForgetReport struct {
	PlayerID  string `json:"player_id"`
	Forgotten bool   `json:"forgotten"`
}

func (r *Registry) forgetPlayerMemory(ctx context.Context, args Args) (any, error) {
	if r.memory == nil {
		return nil, ErrNoMemory
	}
	if err := required("player_id", args.PlayerID); err != nil {
		return nil, err
	}
	if err := r.memory.Forget(ctx, args.PlayerID); err != nil {
		return nil, err
	}
	return ForgetReport{PlayerID: args.PlayerID, Forgotten: true}, nil
}
