package models

import "slices"

// PuzzleState records which clues have been viewed, keyed by a room-scoped key
// such as "room2_archives_viewed". Each key holds a set kept in viewing order.
type PuzzleState struct {
	Viewed map[string][]string `yaml:"viewed" json:"viewed"`
}

// View inserts clue under key and reports whether it was newly added.
func (p *PuzzleState) View(key, clue string) bool {
	if p.Has(key, clue) {
		return false
	}
	if p.Viewed == nil {
		p.Viewed = make(map[string][]string)
	}
	p.Viewed[key] = append(p.Viewed[key], clue)
	return true
}

// Clone returns a copy that shares no storage with p.
func (p PuzzleState) Clone() PuzzleState {
	if p.Viewed == nil {
		return PuzzleState{}
	}
	out := PuzzleState{Viewed: make(map[string][]string, len(p.Viewed))}
	for key, clues := range p.Viewed {
		out.Viewed[key] = slices.Clone(clues)
	}
	return out
}

// Has reports whether clue was viewed under key.
func (p PuzzleState) Has(key, clue string) bool {
	for _, seen := range p.Viewed[key] {
		if seen == clue {
			return true
		}
	}
	return false
}

// Clues returns a copy of the clues viewed under key.
func (p PuzzleState) Clues(key string) []string {
	return append([]string(nil), p.Viewed[key]...)
}

// Missing returns the entries of required not yet viewed under key.
func (p PuzzleState) Missing(key string, required []string) []string {
	var missing []string
	for _, clue := range required {
		if !p.Has(key, clue) {
			missing = append(missing, clue)
		}
	}
	return missing
}
