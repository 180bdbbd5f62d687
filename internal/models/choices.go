package models

import "sort"

// ChoiceLedger accumulates the player decisions that feed ending resolution.
type ChoiceLedger struct {
	SacrificedAI       string `yaml:"sacrificed_ai,omitempty" json:"sacrificed_ai,omitempty"`
	AcceptedTruth      bool   `yaml:"accepted_truth" json:"accepted_truth"`
	VulnerabilityCount int    `yaml:"vulnerability_count" json:"vulnerability_count"`
	RejectionCount     int    `yaml:"rejection_count" json:"rejection_count"`
	TruthDenialCount   int    `yaml:"truth_denial_count" json:"truth_denial_count"`
}

// ChoiceKind is a qualifying player action recorded in the ledger.
type ChoiceKind string

const (
	ChoiceSacrificeEcho   ChoiceKind = "sacrifice_echo"
	ChoiceSacrificeShadow ChoiceKind = "sacrifice_shadow"
	ChoiceRefuseSacrifice ChoiceKind = "refuse_sacrifice"
	ChoiceAcceptTruth     ChoiceKind = "accept_truth"
	ChoiceDenyTruth       ChoiceKind = "deny_truth"
	ChoiceVulnerability   ChoiceKind = "vulnerability"
	ChoiceRejection       ChoiceKind = "rejection"
	ChoiceTruthDenial     ChoiceKind = "truth_denial"
)

var choiceKinds = map[ChoiceKind]bool{
	ChoiceSacrificeEcho:   true,
	ChoiceSacrificeShadow: true,
	ChoiceRefuseSacrifice: true,
	ChoiceAcceptTruth:     true,
	ChoiceDenyTruth:       true,
	ChoiceVulnerability:   true,
	ChoiceRejection:       true,
	ChoiceTruthDenial:     true,
}

// ParseChoiceKind converts a raw choice name into a ChoiceKind.
func ParseChoiceKind(raw string) (ChoiceKind, bool) {
	kind := ChoiceKind(raw)
	return kind, choiceKinds[kind]
}

// ChoiceKinds returns every known choice name, sorted.
func ChoiceKinds() []string {
	names := make([]string, 0, len(choiceKinds))
	for kind := range choiceKinds {
		names = append(names, string(kind))
	}
	sort.Strings(names)
	return names
}

// Record applies one qualifying action. Counters only ever increase.
func (l *ChoiceLedger) Record(kind ChoiceKind) {
	switch kind {
	case ChoiceSacrificeEcho:
		l.SacrificedAI = CompanionEcho
	case ChoiceSacrificeShadow:
		l.SacrificedAI = CompanionShadow
	case ChoiceRefuseSacrifice:
		l.SacrificedAI = ""
	case ChoiceAcceptTruth:
		l.AcceptedTruth = true
	case ChoiceDenyTruth:
		l.AcceptedTruth = false
	case ChoiceVulnerability:
		l.VulnerabilityCount++
	case ChoiceRejection:
		l.RejectionCount++
	case ChoiceTruthDenial:
		l.TruthDenialCount++
	default:
		panic("models: unknown choice kind " + string(kind))
	}
}

// Reset clears every recorded choice.
func (l *ChoiceLedger) Reset() {
	*l = ChoiceLedger{}
}
