package story

import (
	"regexp"
	"strings"

	"github.com/tatianab/echo-rooms/internal/models"
)

// ForcedEndingThreshold is how many rejections or denials end the game early.
const ForcedEndingThreshold = 3

var rejectionKeywords = []string{
	"not real", "don't matter", "not sentient", "artificial", "fake",
}

// rejectionPattern catches "just a machine", "only programs", "just a bunch of code".
var rejectionPattern = regexp.MustCompile(`\b(?:just|only|merely)\s+(?:an?\s+)?(?:(?:bunch|pile|piece|lines?)\s+of\s+)?(?:machines?|programs?|code|software|algorithms?|bots?)\b`)

var denialKeywords = []string{
	"don't accept", "not true", "reject", "deny", "lie", "lies", "lying", "fake", "not real",
	"don't believe", "refuse", "won't accept", "can't be",
}

// containsAny matches keywords on word boundaries so "lie" does not fire on
// "believe".
func containsAny(message string, keywords []string) bool {
	lower := strings.ReplaceAll(strings.ToLower(message), "’", "'")
	for _, k := range keywords {
		for start := 0; ; {
			i := strings.Index(lower[start:], k)
			if i < 0 {
				break
			}
			i += start
			end := i + len(k)
			if (i == 0 || !isWordByte(lower[i-1])) && (end == len(lower) || !isWordByte(lower[end])) {
				return true
			}
			start = i + 1
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\''
}

// DetectsRejection reports whether message dismisses the companions as not real.
func DetectsRejection(message string) bool {
	if containsAny(message, rejectionKeywords) {
		return true
	}
	return rejectionPattern.MatchString(strings.ToLower(message))
}

// DetectsTruthDenial reports whether message refuses the truth about the past.
func DetectsTruthDenial(message string) bool {
	return containsAny(message, denialKeywords)
}

// CheckForcedEnding returns the forced RESET once either guard counter reaches
// the threshold.
func CheckForcedEnding(choices models.ChoiceLedger) (Resolution, bool) {
	switch {
	case choices.RejectionCount >= ForcedEndingThreshold:
		return Forced(ForcedByRejection), true
	case choices.TruthDenialCount >= ForcedEndingThreshold:
		return Forced(ForcedByDenial), true
	}
	return Resolution{}, false
}
