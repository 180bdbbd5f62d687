package engine

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/sentiment.txt
var sentimentPrompt string

// Sentiment labels, from warmest to coldest.
const (
	LabelVeryPositive = "very_positive"
	LabelPositive     = "positive"
	LabelNeutral      = "neutral"
	LabelDismissive   = "dismissive"
	LabelNegative     = "negative"
)

const (
	// NeutralDelta is applied when the analyzer fails.
	NeutralDelta = 0.01
	minDelta     = -0.08
	maxDelta     = 0.05
)

// Sentiment is the analyzer's verdict on one player message.
type Sentiment struct {
	Label      string  `json:"sentiment" yaml:"label"`
	Delta      float64 `json:"affinity_change" yaml:"delta"`
	Vulnerable bool    `json:"vulnerable" yaml:"vulnerable"`
	Reasoning  string  `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Fallback   bool    `json:"fallback,omitempty" yaml:"-"`
}

// Advice tells the companions how to respond to the sentiment.
func (s Sentiment) Advice() string {
	switch s.Label {
	case LabelVeryPositive:
		return "Player is being vulnerable and trusting. This is a bonding moment. Reciprocate with warmth."
	case LabelPositive:
		return "Player is friendly and engaged. Good time to deepen the conversation."
	case LabelNeutral:
		return "Standard interaction. Player is present but not particularly emotional."
	case LabelDismissive:
		return "Player seems disinterested. Try to re-engage or give them space."
	case LabelNegative:
		return "Player is upset or hostile. Be careful. Acknowledge their feelings."
	}
	return "Unknown sentiment."
}

// NeutralSentiment is substituted whenever analysis is unavailable.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: LabelNeutral, Delta: NeutralDelta, Fallback: true}
}

// Analyzer classifies a player message and suggests an affinity delta.
type Analyzer interface {
	Analyze(ctx context.Context, message string) (Sentiment, error)
}

type wordSet []*regexp.Regexp

func newWordSet(words ...string) wordSet {
	set := make(wordSet, 0, len(words))
	for _, w := range words {
		set = append(set, regexp.MustCompile(`\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return set
}

func (s wordSet) count(text string) int {
	n := 0
	for _, re := range s {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

var (
	positiveWords = newWordSet(
		"love", "like", "care", "thank", "thanks", "appreciate", "wonderful", "amazing",
		"great", "beautiful", "yes", "agree", "understand", "help", "together",
		"trust", "believe", "friend", "kind", "sweet", "happy", "glad",
		"absolutely", "perfect", "brilliant", "awesome", "fantastic",
	)
	negativeWords = newWordSet(
		"hate", "stupid", "annoying", "shut up", "leave", "go away", "don't care",
		"boring", "useless", "wrong", "disagree", "no", "never", "stop",
		"creepy", "weird", "uncomfortable", "angry", "mad", "upset", "frustrated",
		"terrible", "awful", "worst", "horrible", "disgusting",
	)
	vulnerabilityWords = newWordSet(
		"feel", "scared", "worried", "afraid", "hope", "dream", "wish",
		"secret", "trust", "confide", "personal", "private", "honestly",
		"truth", "real", "genuine", "open", "miss", "lonely", "lost",
	)
	dismissiveWords = newWordSet(
		"whatever", "don't care", "sure", "fine", "okay", "just", "nothing",
		"forget it", "nevermind", "skip", "next",
	)
)

// KeywordAnalyzer scores messages from fixed word lists. It never fails.
type KeywordAnalyzer struct{}

func (KeywordAnalyzer) Analyze(_ context.Context, message string) (Sentiment, error) {
	lower := strings.ReplaceAll(strings.ToLower(message), "’", "'")
	positive := positiveWords.count(lower)
	negative := negativeWords.count(lower)
	vulnerable := vulnerabilityWords.count(lower)
	dismissive := dismissiveWords.count(lower)

	words := len(strings.Fields(message))
	short, detailed := words < 5, words > 20

	switch {
	case negative > positive:
		return Sentiment{Label: LabelNegative, Delta: max(-0.03-0.01*float64(negative), minDelta)}, nil
	case positive > 0 && vulnerable > 0:
		return Sentiment{Label: LabelVeryPositive, Delta: maxDelta, Vulnerable: true}, nil
	case positive > 0 || detailed:
		return Sentiment{Label: LabelPositive, Delta: min(0.02+0.01*float64(positive), maxDelta)}, nil
	case dismissive > 0 || short:
		return Sentiment{Label: LabelDismissive, Delta: -0.01}, nil
	}
	return Sentiment{Label: LabelNeutral, Delta: NeutralDelta}, nil
}

var labelDeltas = map[string]float64{
	LabelVeryPositive: maxDelta,
	LabelPositive:     0.03,
	LabelNeutral:      NeutralDelta,
	LabelDismissive:   -0.01,
	LabelNegative:     -0.05,
}

// GeminiAnalyzer asks the model for a label and maps it to a fixed delta.
type GeminiAnalyzer struct {
	gemini *Gemini
}

func NewGeminiAnalyzer(g *Gemini) *GeminiAnalyzer {
	return &GeminiAnalyzer{gemini: g}
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, message string) (Sentiment, error) {
	prompt, err := render("sentiment", sentimentPrompt, struct{ Message string }{message})
	if err != nil {
		return Sentiment{}, err
	}
	text, err := a.gemini.generate(ctx, prompt)
	if err != nil {
		return Sentiment{}, err
	}
	return parseSentiment(text)
}

func parseSentiment(text string) (Sentiment, error) {
	clean := stripFences(text)
	var s Sentiment
	if err := yaml.Unmarshal([]byte(clean), &s); err != nil {
		return Sentiment{}, fmt.Errorf("failed to parse sentiment YAML: %v\nOutput was: %s", err, clean)
	}
	s.Label = strings.ToLower(strings.TrimSpace(s.Label))
	delta, ok := labelDeltas[s.Label]
	if !ok {
		return Sentiment{}, fmt.Errorf("unknown sentiment label %q", s.Label)
	}
	s.Delta = delta
	return s, nil
}
