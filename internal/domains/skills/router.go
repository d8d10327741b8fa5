package skills

import (
	"regexp"
	"strings"
)

// Intent names.
const (
	IntentWeather = "weather"
	IntentNews    = "news"
	IntentJoke    = "joke"
	IntentGeneral = "general"
)

// Intent is the routing result for one confirmed utterance. Arg carries
// the extracted place for weather queries, empty otherwise.
type Intent struct {
	Name string
	Arg  string
}

// IsSkill reports whether the intent short-circuits the language model.
func (i Intent) IsSkill() bool {
	return i.Name != IntentGeneral
}

var placePattern = regexp.MustCompile(`(?i)\b(?:in|at)\s+([a-zA-Z][a-zA-Z\s\-']*?)(?:[?.!,]|$)`)

// leadingPlacePattern matches bare follow-ups like "In Paris?" or
// "At Tokyo": nothing but a place after the preposition.
var leadingPlacePattern = regexp.MustCompile(`^(?i)(?:in|at)\s+([a-zA-Z][a-zA-Z\s\-']*)[?.!]?$`)

var weatherKeywords = []string{"weather", "temperature", "forecast", "raining", "sunny", "how hot", "how cold"}
var newsKeywords = []string{"news", "headlines", "happening in the world", "current events"}
var jokeKeywords = []string{"joke", "something funny", "make me laugh"}

// Resolve classifies an utterance. Predicates are tested in order;
// the first match wins.
func Resolve(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Intent{Name: IntentGeneral}
	}

	if containsAny(lower, weatherKeywords) {
		return Intent{Name: IntentWeather, Arg: extractPlace(text)}
	}
	if m := leadingPlacePattern.FindStringSubmatch(strings.TrimSpace(text)); len(m) == 2 {
		return Intent{Name: IntentWeather, Arg: strings.TrimSpace(m[1])}
	}
	if containsAny(lower, newsKeywords) {
		return Intent{Name: IntentNews}
	}
	if containsAny(lower, jokeKeywords) {
		return Intent{Name: IntentJoke}
	}
	return Intent{Name: IntentGeneral}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// extractPlace pulls the location from phrasings like "weather in Paris"
// or "is it raining at the lake?".
func extractPlace(text string) string {
	m := placePattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
