package story

import (
	"embed"
	"fmt"

	"github.com/tatianab/echo-rooms/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed content/rooms.yaml
var roomsYAML []byte

//go:embed content/fragments.yaml
var fragmentsYAML []byte

//go:embed content/endings.yaml
var endingsYAML []byte

// contentFS keeps the raw files reachable for tooling that wants to list them.
//
//go:embed content
var contentFS embed.FS

type roomContent struct {
	Number        models.RoomNumber `yaml:"number"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Objective     string            `yaml:"objective"`
	PuzzleType    models.PuzzleType `yaml:"puzzle_type"`
	ClueKey       string            `yaml:"clue_key"`
	RequiredClues []string          `yaml:"required_clues"`
	OptionalClues []string          `yaml:"optional_clues"`
	Hint          string            `yaml:"hint"`
	Clues         map[string]string `yaml:"clues"`
	Scenario      string            `yaml:"scenario"`
}

type endingContent struct {
	Ending      models.Ending `yaml:"ending"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Narrative   string        `yaml:"narrative"`
	Quote       string        `yaml:"quote"`
}

type library struct {
	rooms     map[models.RoomNumber]roomContent
	fragments map[string]models.MemoryFragment
	endings   map[models.Ending]endingContent
	forced    map[ForcedReason]string
}

var lib = mustLoadLibrary()

func mustLoadLibrary() *library {
	l, err := loadLibrary()
	if err != nil {
		panic(fmt.Sprintf("story: load embedded content: %v", err))
	}
	return l
}

func loadLibrary() (*library, error) {
	var rooms struct {
		Rooms []roomContent `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(roomsYAML, &rooms); err != nil {
		return nil, fmt.Errorf("parse rooms: %w", err)
	}
	var fragments struct {
		Fragments []models.MemoryFragment `yaml:"fragments"`
	}
	if err := yaml.Unmarshal(fragmentsYAML, &fragments); err != nil {
		return nil, fmt.Errorf("parse fragments: %w", err)
	}
	var endings struct {
		Endings []endingContent `yaml:"endings"`
		Forced  struct {
			Rejection string `yaml:"rejection"`
			Denial    string `yaml:"denial"`
		} `yaml:"forced"`
	}
	if err := yaml.Unmarshal(endingsYAML, &endings); err != nil {
		return nil, fmt.Errorf("parse endings: %w", err)
	}

	l := &library{
		rooms:     make(map[models.RoomNumber]roomContent),
		fragments: make(map[string]models.MemoryFragment),
		endings:   make(map[models.Ending]endingContent),
		forced: map[ForcedReason]string{
			ForcedByRejection: endings.Forced.Rejection,
			ForcedByDenial:    endings.Forced.Denial,
		},
	}
	for _, room := range rooms.Rooms {
		if !room.Number.Valid() {
			return nil, fmt.Errorf("room %d is out of range", room.Number)
		}
		l.rooms[room.Number] = room
	}
	if len(l.rooms) != models.RoomCount {
		return nil, fmt.Errorf("expected %d rooms, got %d", models.RoomCount, len(l.rooms))
	}
	for _, fragment := range fragments.Fragments {
		l.fragments[fragment.ID] = fragment
	}
	for _, ending := range endings.Endings {
		if !ending.Ending.Valid() {
			return nil, fmt.Errorf("unknown ending %q", ending.Ending)
		}
		l.endings[ending.Ending] = ending
	}
	return l, nil
}

// ContentFiles lists the embedded content files.
func ContentFiles() ([]string, error) {
	entries, err := contentFS.ReadDir("content")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

// ClueKey returns the PuzzleState key that records clues viewed in room n.
func ClueKey(n models.RoomNumber) string {
	return lib.rooms[n].ClueKey
}

// ClueText returns the text revealed by viewing clue in room n.
func ClueText(n models.RoomNumber, clue string) (string, bool) {
	room, ok := lib.rooms[n]
	if !ok {
		return "", false
	}
	text, ok := room.Clues[clue]
	return text, ok
}

// Scenario returns the text shown when room n is first entered.
func Scenario(n models.RoomNumber) string {
	return lib.rooms[n].Scenario
}

// RoomHint returns the room's general puzzle hint.
func RoomHint(n models.RoomNumber) string {
	return lib.rooms[n].Hint
}
