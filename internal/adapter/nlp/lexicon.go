package nlp

import (
	"math"
	"strings"
	"unicode"
)

// Lexicon is a word-list polarity scorer. Each known word carries a weight in
// [-1, 1]; a preceding intensifier scales it and a negation within the three
// previous words flips and dampens it. The score is the mean over scored words.
type Lexicon struct {
	words        map[string]float64
	intensifiers map[string]float64
	negations    map[string]bool
}

// negationWindow is how many preceding tokens a negation reaches.
const negationWindow = 3

// NewLexicon returns a Lexicon with the built-in English word lists.
func NewLexicon() *Lexicon {
	return &Lexicon{
		words:        lexiconWords,
		intensifiers: lexiconIntensifiers,
		negations:    lexiconNegations,
	}
}

// Polarity returns the mean polarity of the scored words in text, or 0 when
// none are known.
func (l *Lexicon) Polarity(text string) float64 {
	tokens := tokenize(text)
	var sum float64
	var scored int
	for i, tok := range tokens {
		w, ok := l.words[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if m, ok := l.intensifiers[tokens[i-1]]; ok {
				w *= m
			}
		}
		if l.negated(tokens, i) {
			w *= -0.5
		}
		sum += w
		scored++
	}
	if scored == 0 {
		return 0
	}
	score := math.Max(-1, math.Min(1, sum/float64(scored)))
	return math.Round(score*1000) / 1000
}

func (l *Lexicon) negated(tokens []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if l.negations[tokens[j]] {
			return true
		}
	}
	return false
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit or apostrophe. "can t" and "can't" both end up as negations.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

var lexiconNegations = map[string]bool{
	"not": true, "no": true, "never": true, "nothing": true, "nobody": true,
	"none": true, "neither": true, "nor": true, "without": true,
	"don't": true, "dont": true, "doesn't": true, "didn't": true, "isn't": true,
	"wasn't": true, "aren't": true, "can't": true, "cant": true, "cannot": true,
	"won't": true, "wouldn't": true, "shouldn't": true, "couldn't": true, "t": true,
}

var lexiconIntensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "so": 1.2, "extremely": 1.5, "incredibly": 1.5,
	"totally": 1.3, "completely": 1.4, "absolutely": 1.4, "super": 1.3,
	"quite": 1.1, "too": 1.2, "slightly": 0.5, "somewhat": 0.7, "barely": 0.4,
}

var lexiconWords = map[string]float64{
	// positive
	"good": 0.7, "great": 0.8, "excellent": 1.0, "amazing": 0.6, "wonderful": 1.0,
	"fantastic": 0.4, "best": 1.0, "love": 0.5, "loved": 0.7, "loving": 0.6,
	"beautiful": 0.85, "perfect": 1.0, "awesome": 1.0, "brilliant": 0.9, "happy": 0.8,
	"glad": 0.5, "pleased": 0.5, "nice": 0.6, "fun": 0.3, "enjoy": 0.4,
	"enjoyed": 0.4, "better": 0.5, "calm": 0.3, "safe": 0.5, "hope": 0.4,
	"hopeful": 0.5, "grateful": 0.6, "thankful": 0.6, "thanks": 0.2, "proud": 0.8,
	"relieved": 0.5, "peaceful": 0.5, "excited": 0.4, "optimistic": 0.5, "kind": 0.6,
	"support": 0.3, "supported": 0.4, "okay": 0.5, "fine": 0.4, "well": 0.2,
	// negative
	"bad": -0.7, "terrible": -1.0, "awful": -1.0, "horrible": -1.0, "worst": -1.0,
	"hate": -0.8, "hated": -0.9, "sad": -0.5, "unhappy": -0.6, "angry": -0.5,
	"lonely": -0.6, "alone": -0.3, "scared": -0.6, "afraid": -0.6, "fear": -0.5,
	"worried": -0.4, "anxious": -0.5, "anxiety": -0.5, "depressed": -0.8, "depression": -0.7,
	"hopeless": -0.9, "worthless": -0.9, "empty": -0.5, "tired": -0.4, "exhausted": -0.6,
	"hurt": -0.6, "pain": -0.6, "painful": -0.7, "cry": -0.5, "crying": -0.6,
	"lost": -0.4, "broken": -0.7, "overwhelmed": -0.6, "struggling": -0.5, "stuck": -0.4,
	"miserable": -1.0, "suffering": -0.8, "die": -0.8, "dead": -0.7, "kill": -0.9,
	"suicide": -1.0, "suicidal": -1.0, "panic": -0.6, "desperate": -0.7, "wrong": -0.5,
	"hard": -0.3, "difficult": -0.5, "worse": -0.6, "failure": -0.7, "failed": -0.5,
}
