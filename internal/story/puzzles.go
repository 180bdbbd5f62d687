package story

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tatianab/echo-rooms/internal/models"
)

// MinJustificationLength is the shortest accepted final-room justification.
const MinJustificationLength = 20

var weatherAnswers = []string{
	"heavy rain",
	"heavy rainfall",
	"torrential rain",
	"storm",
	"downpour",
	"intense rain",
}

var passwordVariants = []string{
	"ALEXCHEN_MAY12_2022",
	"ALEXCHEN_MAY_12_2022",
	"ALEX_CHEN_MAY_12_2022",
	"ALEXCHEN_MAY122022",
}

var innocenceKeywords = []string{
	"unavoidable",
	"not my fault",
	"not your fault",
	"not at fault",
	"couldn't prevent",
	"couldn't stop",
	"no fault",
	"accident was unavoidable",
	"nothing you could do",
	"nothing i could do",
}

var timelineOrders = []string{
	"LOSS_GRIEF_CREATION_OBSESSION_CYCLE",
	"1_2_3_4_5",
	"ACCIDENT_GRIEF_BUILD_OBSESSION_LOOP",
}

// timelineVocabularies are the two stage wordings a player may use. A message
// is read in whichever one it uses more of.
var timelineVocabularies = [][]string{
	{"LOSS", "GRIEF", "CREATION", "OBSESSION", "CYCLE"},
	{"ACCIDENT", "GRIEF", "BUILD", "OBSESSION", "LOOP"},
}

var (
	passwordPatterns = []*regexp.Regexp{
		regexp.MustCompile(`PASSWORD\s+IS\s+([A-Z0-9_][A-Z0-9_\- \t]*)`),
		regexp.MustCompile(`CODE\s+IS\s+([A-Z0-9_][A-Z0-9_\- \t]*)`),
		regexp.MustCompile(`PASSWORD:\s*([A-Z0-9_][A-Z0-9_\- \t]*)`),
		regexp.MustCompile(`ENTER\s+([A-Z0-9_][A-Z0-9_\- \t]*)`),
	}
	passwordWord       = regexp.MustCompile(`[A-Z0-9_]+`)
	bareTokenPattern   = regexp.MustCompile(`[A-Z0-9_]{10,}`)
	digitPattern       = regexp.MustCompile(`[0-9]`)
	numberedListMarker = regexp.MustCompile(`1\.|FIRST`)
	wordPattern        = regexp.MustCompile(`[A-Z]+`)
	separatorPattern   = regexp.MustCompile(`[\s,\-]+`)
	underscoreRun      = regexp.MustCompile(`_+`)
)

// ValidateRoom1Answer reports whether answer names the weather on the night of
// the accident.
func ValidateRoom1Answer(answer string) bool {
	lower := strings.ToLower(strings.TrimSpace(answer))
	for _, want := range weatherAnswers {
		if strings.Contains(lower, want) {
			return true
		}
	}
	return false
}

func squashPassword(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '_':
			return -1
		}
		return r
	}, strings.ToUpper(s))
}

// ValidateRoom2Password compares password against the accepted variants,
// ignoring case, whitespace, hyphens and underscores.
func ValidateRoom2Password(password string) bool {
	got := squashPassword(password)
	if got == "" {
		return false
	}
	for _, want := range passwordVariants {
		if got == squashPassword(want) {
			return true
		}
	}
	return false
}

// trimPassword cuts the text following a password marker down to the longest
// run of words that is an accepted password, or to its first word when none
// is. "ALEX CHEN MAY 12 2022 PLEASE" becomes "ALEX CHEN MAY 12 2022".
func trimPassword(raw string) string {
	words := passwordWord.FindAllStringIndex(raw, -1)
	for i := len(words) - 1; i > 0; i-- {
		if candidate := raw[:words[i][1]]; ValidateRoom2Password(candidate) {
			return candidate
		}
	}
	return raw[words[0][0]:words[0][1]]
}

// ExtractPassword pulls a candidate password out of a chat message. Words
// after the marker may be split by spaces or hyphens.
func ExtractPassword(message string) (string, bool) {
	upper := strings.ToUpper(message)
	if strings.Contains(upper, "PASSWORD") || strings.Contains(upper, "CODE") || strings.Contains(upper, "ENTER") {
		for _, re := range passwordPatterns {
			if m := re.FindStringSubmatch(upper); m != nil {
				return trimPassword(m[1]), true
			}
		}
	}
	if strings.Contains(message, "_") && digitPattern.MatchString(message) {
		if m := bareTokenPattern.FindString(upper); m != "" {
			return m, true
		}
	}
	return "", false
}

// ValidateRoom3Conclusion reports whether the player concluded the accident
// was not their fault.
func ValidateRoom3Conclusion(message string) bool {
	lower := strings.ToLower(message)
	lower = strings.ReplaceAll(lower, "’", "'")
	for _, keyword := range innocenceKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func normalizeTimeline(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = separatorPattern.ReplaceAllString(s, "_")
	s = underscoreRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ValidateRoom4Timeline reports whether order matches an accepted ordering
// exactly.
func ValidateRoom4Timeline(order string) bool {
	got := normalizeTimeline(order)
	for _, want := range timelineOrders {
		if got == want {
			return true
		}
	}
	return false
}

// ExtractTimeline pulls an ordered stage list out of a numbered list or arrow
// notation. Stages keep the order of their first mention; later repeats and
// words from the other vocabulary are ignored.
func ExtractTimeline(message string) (string, bool) {
	upper := strings.ToUpper(message)
	if !numberedListMarker.MatchString(upper) && !strings.Contains(message, "→") && !strings.Contains(message, "->") {
		return "", false
	}
	words := wordPattern.FindAllString(upper, -1)

	var best []string
	for _, vocab := range timelineVocabularies {
		var stages []string
		for _, word := range words {
			if slices.Contains(vocab, word) && !slices.Contains(stages, word) {
				stages = append(stages, word)
			}
		}
		if len(stages) > len(best) {
			best = stages
		}
	}
	if len(best) < 4 {
		return "", false
	}
	return strings.Join(best, "_"), true
}

// ValidateRoom5Choice accepts any justification of reasonable length.
func ValidateRoom5Choice(justification string) bool {
	return len([]rune(strings.TrimSpace(justification))) >= MinJustificationLength
}

// PuzzleResult is the outcome of checking a room's puzzle against a message.
type PuzzleResult struct {
	Room       models.RoomNumber `json:"room"`
	Complete   bool              `json:"puzzle_complete"`
	Confidence float64           `json:"confidence"`
	Hint       string            `json:"hint,omitempty"`
	Missing    []string          `json:"missing_clues,omitempty"`
	Candidate  string            `json:"candidate,omitempty"`
}

// CheckPuzzle evaluates message against room n. Required clues must all be
// viewed first; until then the result carries the fraction viewed and a hint
// naming what is missing.
func CheckPuzzle(n models.RoomNumber, state models.PuzzleState, message string) PuzzleResult {
	c, ok := lib.rooms[n]
	if !ok {
		return PuzzleResult{Room: n, Hint: fmt.Sprintf("room %d does not exist", n)}
	}

	if missing := state.Missing(c.ClueKey, c.RequiredClues); len(missing) > 0 {
		viewed := len(c.RequiredClues) - len(missing)
		return PuzzleResult{
			Room:       n,
			Confidence: float64(viewed) / float64(len(c.RequiredClues)),
			Hint:       "Examine " + strings.Join(missing, ", ") + " first",
			Missing:    missing,
		}
	}

	result := PuzzleResult{Room: n, Confidence: 1}
	switch c.PuzzleType {
	case models.PuzzleAnswer:
		result.Complete = ValidateRoom1Answer(message)
	case models.PuzzlePassword:
		candidate, found := ExtractPassword(message)
		if !found {
			candidate = message
		}
		result.Candidate = candidate
		result.Complete = ValidateRoom2Password(candidate)
	case models.PuzzleEvidence:
		result.Complete = ValidateRoom3Conclusion(message)
	case models.PuzzleTimeline:
		candidate, found := ExtractTimeline(message)
		if !found {
			candidate = message
		}
		result.Candidate = normalizeTimeline(candidate)
		result.Complete = ValidateRoom4Timeline(candidate)
	case models.PuzzleEthicalChoice:
		result.Complete = ValidateRoom5Choice(message)
	default:
		panic(fmt.Sprintf("story: room %d has unknown puzzle type %q", n, c.PuzzleType))
	}
	if !result.Complete {
		result.Hint = c.Hint
	}
	return result
}
