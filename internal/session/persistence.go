package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tatianab/echo-rooms/internal/affinity"
	"github.com/tatianab/echo-rooms/internal/models"
	"github.com/tatianab/echo-rooms/internal/story"
	"gopkg.in/yaml.v3"
)

// DefaultSaveDir is where sessions are written when no directory is configured.
const DefaultSaveDir = ".saves"

// Store saves each session as a directory of yaml files under Dir.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultSaveDir
	}
	return &Store{Dir: dir}
}

type meta struct {
	ID        string            `yaml:"id"`
	PlayerID  string            `yaml:"player_id"`
	Ending    *story.Resolution `yaml:"ending,omitempty"`
	CreatedAt time.Time         `yaml:"created_at"`
	UpdatedAt time.Time         `yaml:"updated_at"`
}

type choices struct {
	Ledger  models.ChoiceLedger `yaml:"ledger"`
	Puzzles models.PuzzleState  `yaml:"puzzles"`
}

func writeYAML(dir, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readYAML(dir, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Save writes g to <Dir>/<id>/, one file per concern. The files are written
// to a staging directory that replaces the previous save only once complete.
func (s *Store) Save(g *Game) error {
	final := filepath.Join(s.Dir, g.ID)
	dir := filepath.Join(s.Dir, "."+g.ID+".tmp")
	old := filepath.Join(s.Dir, "."+g.ID+".old")
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := s.writeFiles(dir, g); err != nil {
		return err
	}

	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if err := os.Rename(final, old); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("move previous save: %w", err)
	}
	if err := os.Rename(dir, final); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return os.RemoveAll(old)
}

func (s *Store) writeFiles(dir string, g *Game) error {
	// game.yaml is written last and marks the directory as a complete save.
	if err := writeYAML(dir, "progression.yaml", g.Progression); err != nil {
		return err
	}
	if err := writeYAML(dir, "affinity.yaml", g.Affinity); err != nil {
		return err
	}
	if err := writeYAML(dir, "choices.yaml", choices{Ledger: g.Choices, Puzzles: g.Puzzles}); err != nil {
		return err
	}
	if err := writeYAML(dir, "history.yaml", g.History); err != nil {
		return err
	}
	return writeYAML(dir, "game.yaml", meta{
		ID:        g.ID,
		PlayerID:  g.PlayerID,
		Ending:    g.Ending,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	})
}

// Load reads the session saved under id. If a save was interrupted between
// moving the previous one aside and committing the new one, the previous save
// is read.
func (s *Store) Load(id string) (*Game, error) {
	dir := filepath.Join(s.Dir, id)
	if _, err := os.Stat(filepath.Join(dir, "game.yaml")); errors.Is(err, fs.ErrNotExist) {
		old := filepath.Join(s.Dir, "."+id+".old")
		if _, err := os.Stat(filepath.Join(old, "game.yaml")); err == nil {
			dir = old
		}
	}

	var m meta
	if err := readYAML(dir, "game.yaml", &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load session %q: %w", id, ErrSessionNotFound)
		}
		return nil, err
	}

	var progression story.Progression
	if err := readYAML(dir, "progression.yaml", &progression); err != nil {
		return nil, err
	}
	if err := progression.Validate(); err != nil {
		return nil, fmt.Errorf("load session %q: %w", id, err)
	}
	tracker := affinity.NewTracker()
	if err := readYAML(dir, "affinity.yaml", tracker); err != nil {
		return nil, err
	}
	var c choices
	if err := readYAML(dir, "choices.yaml", &c); err != nil {
		return nil, err
	}
	var history History
	if err := readYAML(dir, "history.yaml", &history); err != nil {
		return nil, err
	}

	return &Game{
		ID:          m.ID,
		PlayerID:    m.PlayerID,
		Progression: &progression,
		Affinity:    tracker,
		Choices:     c.Ledger,
		Puzzles:     c.Puzzles,
		History:     history,
		Ending:      m.Ending,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

// Summary describes a saved session for listings.
type Summary struct {
	ID        string
	PlayerID  string
	Ending    models.Ending
	UpdatedAt time.Time
}

// List returns the saved sessions, most recently updated first.
func (s *Store) List() ([]Summary, error) {
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		return []Summary{}, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, err
	}

	var sessions []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			// A previous save is listed only while its replacement is missing.
			id, ok := strings.CutSuffix(strings.TrimPrefix(name, "."), ".old")
			if !ok {
				continue
			}
			if _, err := os.Stat(filepath.Join(s.Dir, id, "game.yaml")); err == nil {
				continue
			}
		}
		var m meta
		if err := readYAML(filepath.Join(s.Dir, name), "game.yaml", &m); err != nil {
			continue
		}
		sum := Summary{ID: m.ID, PlayerID: m.PlayerID, UpdatedAt: m.UpdatedAt}
		if m.Ending != nil {
			sum.Ending = m.Ending.Ending
		}
		sessions = append(sessions, sum)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// Delete removes the saved session for id.
func (s *Store) Delete(id string) error {
	for _, name := range []string{id, "." + id + ".tmp", "." + id + ".old"} {
		if err := os.RemoveAll(filepath.Join(s.Dir, name)); err != nil {
			return err
		}
	}
	return nil
}
