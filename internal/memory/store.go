// Package memory remembers players across playthroughs. Memories fade with
// time at a rate set by the ending the player reached.
package memory

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/tatianab/echo-rooms/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// DefaultMaxPlayers caps how many players are remembered at once.
const DefaultMaxPlayers = 1000

// Store persists player memories in SQLite.
type Store struct {
	sqlDB      *sql.DB
	maxPlayers int
	now        func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the memory database at path and applies the schema.
func Open(path string, maxPlayers int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, maxPlayers: maxPlayers, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Playthrough is a finished (or abandoned) game worth remembering.
type Playthrough struct {
	PlayerID      string
	Ending        models.Ending
	SacrificedAI  string
	AcceptedTruth bool
	FinalAffinity float64
}

// RecordPlaythrough stores or refreshes the player's memory. An ending that
// maps to FREEDOM erases the player instead.
func (s *Store) RecordPlaythrough(ctx context.Context, p Playthrough) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(p.PlayerID) == "" {
		return fmt.Errorf("player id is required")
	}

	decay := DecayFor(p.Ending)
	if decay == DecayFreedom {
		log.Printf("[memory] player %s chose %s, letting go of all memories", short(p.PlayerID), p.Ending)
		return s.Forget(ctx, p.PlayerID)
	}

	existing, err := s.Recall(ctx, p.PlayerID)
	if err != nil {
		return err
	}
	if !existing.Known {
		if _, err := s.EnforceLimit(ctx); err != nil {
			return err
		}
	}

	now := s.now()
	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO player_memories (
		  player_id, first_seen, last_seen, playthrough_count, last_ending,
		  decay_type, decay_minutes, sacrificed_ai, accepted_truth, final_affinity
		) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
		  last_seen = excluded.last_seen,
		  playthrough_count = player_memories.playthrough_count + 1,
		  last_ending = excluded.last_ending,
		  decay_type = excluded.decay_type,
		  decay_minutes = excluded.decay_minutes,
		  sacrificed_ai = excluded.sacrificed_ai,
		  accepted_truth = excluded.accepted_truth,
		  final_affinity = excluded.final_affinity`,
		p.PlayerID,
		toMillis(now),
		toMillis(now),
		string(p.Ending),
		string(decay),
		decay.Minutes(),
		p.SacrificedAI,
		p.AcceptedTruth,
		p.FinalAffinity,
	)
	if err != nil {
		return fmt.Errorf("record playthrough: %w", err)
	}
	log.Printf("[memory] stored player %s (ending %s, decay %dmin)", short(p.PlayerID), p.Ending, decay.Minutes())
	return nil
}

// Recall returns what is remembered about the player. Memories past their
// decay window are deleted and reported as unknown.
func (s *Store) Recall(ctx context.Context, playerID string) (Recollection, error) {
	if err := ctx.Err(); err != nil {
		return Recollection{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT first_seen, last_seen, playthrough_count, last_ending, decay_type,
		       decay_minutes, sacrificed_ai, accepted_truth, final_affinity
		FROM player_memories WHERE player_id = ?`, playerID)

	var (
		firstSeen, lastSeen int64
		r                   = Recollection{PlayerID: playerID}
		ending, decay       string
	)
	err := row.Scan(&firstSeen, &lastSeen, &r.Playthroughs, &ending, &decay,
		&r.DecayMinutes, &r.SacrificedAI, &r.AcceptedTruth, &r.FinalAffinity)
	if errors.Is(err, sql.ErrNoRows) {
		return Recollection{PlayerID: playerID}, nil
	}
	if err != nil {
		return Recollection{}, fmt.Errorf("recall player: %w", err)
	}
	r.FirstSeen = fromMillis(firstSeen)
	r.LastSeen = fromMillis(lastSeen)
	r.LastEnding = models.Ending(ending)
	r.Decay = DecayType(decay)

	elapsed := s.now().Sub(r.LastSeen)
	if Expired(elapsed, r.DecayMinutes) {
		log.Printf("[memory] player %s exceeded decay (%.0f/%dmin), forgetting", short(playerID), elapsed.Minutes(), r.DecayMinutes)
		if err := s.Forget(ctx, playerID); err != nil {
			return Recollection{}, err
		}
		return Recollection{PlayerID: playerID}, nil
	}

	r.Known = true
	r.MinutesSince = int(elapsed.Minutes())
	r.Strength = Strength(elapsed, r.DecayMinutes)
	r.ShouldRemember = r.Strength > RememberThreshold
	r.TimeDescription = DescribeElapsed(r.MinutesSince)
	return r, nil
}

// Forget deletes everything remembered about the player.
func (s *Store) Forget(ctx context.Context, playerID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM player_memories WHERE player_id = ?`, playerID); err != nil {
		return fmt.Errorf("forget player: %w", err)
	}
	return nil
}

// Prune deletes every memory past its decay window and returns how many went.
func (s *Store) Prune(ctx context.Context) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM player_memories WHERE last_seen + decay_minutes * 60000 < ?`,
		toMillis(s.now()))
	if err != nil {
		return 0, fmt.Errorf("prune memories: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns the number of remembered players.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM player_memories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

// EnforceLimit drops the least recently seen tenth of players once the store
// is full, and returns how many were dropped.
func (s *Store) EnforceLimit(ctx context.Context) (int, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n < s.maxPlayers {
		return 0, nil
	}
	drop := max(1, s.maxPlayers/10)
	log.Printf("[memory] player limit reached (%d/%d), dropping %d oldest", n, s.maxPlayers, drop)
	res, err := s.sqlDB.ExecContext(ctx, `
		DELETE FROM player_memories WHERE player_id IN (
		  SELECT player_id FROM player_memories ORDER BY last_seen ASC LIMIT ?
		)`, drop)
	if err != nil {
		return 0, fmt.Errorf("enforce player limit: %w", err)
	}
	dropped, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(dropped), nil
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
