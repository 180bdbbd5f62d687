package story

import (
	"fmt"

	"github.com/tatianab/echo-rooms/internal/models"
)

// ForcedReason explains why an ending was forced before the final room.
type ForcedReason string

const (
	ForcedByRejection ForcedReason = "rejection"
	ForcedByDenial    ForcedReason = "denial"
)

// Advocates name which companion argues for an ending.
const (
	AdvocateBoth = "both"
	AdvocateNone = ""
)

// Resolution is the outcome of the ending cascade.
type Resolution struct {
	Ending     models.Ending `json:"ending" yaml:"ending"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	Reasoning  string        `json:"reasoning" yaml:"reasoning"`
	Advocate   string        `json:"advocate,omitempty" yaml:"advocate,omitempty"`
	Forced     ForcedReason  `json:"forced,omitempty" yaml:"forced,omitempty"`
}

func advocateFor(e models.Ending) string {
	switch e {
	case models.EndingMerger, models.EndingLiberation:
		return AdvocateBoth
	case models.EndingForeverTogether:
		return models.CompanionEcho
	case models.EndingGoodbye:
		return models.CompanionShadow
	}
	return AdvocateNone
}

// Resolve picks an ending from the average companion affinity and the choice
// ledger. The rules are evaluated in order and the first match wins.
func Resolve(avgAffinity float64, choices models.ChoiceLedger) Resolution {
	a := avgAffinity
	truth := choices.AcceptedTruth
	v := choices.VulnerabilityCount

	res := func(e models.Ending, confidence float64, reasoning string) Resolution {
		return Resolution{Ending: e, Confidence: confidence, Reasoning: reasoning, Advocate: advocateFor(e)}
	}

	switch {
	case a >= 0.7 && truth && v >= 3:
		return res(models.EndingMerger, 1.0,
			fmt.Sprintf("Deep bond (%.2f) with repeated vulnerability (%d) and the truth accepted", a, v))
	case a >= 0.6 && truth && v < 3:
		return res(models.EndingForeverTogether, 0.85,
			fmt.Sprintf("Strong bond (%.2f) but little vulnerability (%d); comfort wins over growth", a, v))
	case a >= 0.4 && truth && v >= 2:
		return res(models.EndingLiberation, 0.9,
			fmt.Sprintf("Balanced bond (%.2f), truth accepted and willing to be open (%d)", a, v))
	case a >= 0.3 && a < 0.6 && truth:
		return res(models.EndingGoodbye, 0.9,
			fmt.Sprintf("Moderate bond (%.2f) and the truth accepted; ready to let go", a))
	case a < 0.3 || !truth:
		return res(models.EndingReset, 0.95,
			fmt.Sprintf("Weak bond (%.2f) or truth refused (accepted=%t); the loop continues", a, truth))
	}

	// Unreachable with the rules above for any finite affinity, kept so the
	// cascade always returns.
	if truth && a >= 0.4 {
		return res(models.EndingGoodbye, 0.7, "Default: truth accepted with a workable bond")
	}
	return res(models.EndingReset, 0.8, "Default: no clear path forward")
}

// Forced returns the RESET resolution used when a guard counter trips.
func Forced(reason ForcedReason) Resolution {
	return Resolution{
		Ending:     models.EndingReset,
		Confidence: 1.0,
		Reasoning:  fmt.Sprintf("Forced ending after repeated %s", reason),
		Forced:     reason,
	}
}

// Narrative returns the ending text, or "THE END" for an unknown ending.
func Narrative(e models.Ending) string {
	c, ok := lib.endings[e]
	if !ok || c.Narrative == "" {
		return "THE END"
	}
	return c.Narrative
}

// Title returns the display title for e.
func Title(e models.Ending) string {
	if c, ok := lib.endings[e]; ok {
		return c.Title
	}
	return string(e)
}

// Description returns a one-line description for e.
func Description(e models.Ending) string {
	if c, ok := lib.endings[e]; ok {
		return c.Description
	}
	return "Unknown ending"
}

// Quote returns the closing quote for e.
func Quote(e models.Ending) string {
	return lib.endings[e].Quote
}

// ForcedNarrative returns the narrative for a forced reset.
func ForcedNarrative(reason ForcedReason) string {
	if text := lib.forced[reason]; text != "" {
		return text
	}
	return Narrative(models.EndingReset)
}

// NarrativeFor returns the text for a resolution, preferring the forced
// variant when one applies.
func NarrativeFor(r Resolution) string {
	if r.Forced != "" {
		return ForcedNarrative(r.Forced)
	}
	return Narrative(r.Ending)
}
