package story

import (
	"sort"

	"github.com/tatianab/echo-rooms/internal/models"
)

var roomFragments = map[models.RoomNumber][]string{
	models.RoomAwakening:    {"fragment_1"},
	models.RoomArchives:     {"fragment_2_lab", "fragment_2_accident", "fragment_2_first_reset"},
	models.RoomTestingArena: {"fragment_3"},
	models.RoomTruthChamber: {"fragment_4"},
	models.RoomExit:         {"fragment_final"},
}

// Fragment returns a copy of the fragment with id, or nil if there is none.
func Fragment(id string) *models.MemoryFragment {
	f, ok := lib.fragments[id]
	if !ok {
		return nil
	}
	return &f
}

// FragmentOptions lists the fragment ids that can be revealed in room n.
func FragmentOptions(n models.RoomNumber) []string {
	return append([]string(nil), roomFragments[n]...)
}

// FragmentFor returns the fragment revealed on completing room n. choice picks
// among a room's alternatives and falls back to the first one; nil means the
// room has no fragment.
func FragmentFor(n models.RoomNumber, choice string) *models.MemoryFragment {
	ids := roomFragments[n]
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		if id == choice {
			return Fragment(id)
		}
	}
	return Fragment(ids[0])
}

// FragmentIDs returns every known fragment id, sorted.
func FragmentIDs() []string {
	ids := make([]string, 0, len(lib.fragments))
	for id := range lib.fragments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
