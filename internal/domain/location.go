package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// Entity is a named entity reported by an EntityRecognizer.
type Entity struct {
	Text  string
	Label string
}

// Entity labels treated as places.
const (
	LabelGPE      = "GPE"
	LabelLocation = "LOC"
)

// EntityRecognizer finds named entities in free text.
type EntityRecognizer interface {
	Entities(text string) []Entity
}

// LocationStrategy is one link of the resolution chain. Find reports the
// candidate text and whether it produced one.
type LocationStrategy struct {
	Source LocationSource
	Find   func(text string) (string, bool)
}

// LocationExtractor resolves a LocationCandidate by trying its strategies in
// order and keeping the first hit.
type LocationExtractor struct {
	strategies []LocationStrategy
}

// NewLocationExtractor builds the standard four-strategy chain. A nil
// recognizer skips the entity strategy.
func NewLocationExtractor(g *Gazetteer, ner EntityRecognizer) *LocationExtractor {
	strategies := []LocationStrategy{{Source: SourcePattern, Find: patternStrategy(g)}}
	if ner != nil {
		strategies = append(strategies, LocationStrategy{Source: SourceEntity, Find: entityStrategy(ner)})
	}
	strategies = append(strategies,
		LocationStrategy{Source: SourceGazetteer, Find: gazetteerStrategy(g)},
		LocationStrategy{Source: SourceStateCode, Find: stateCodeStrategy(g)},
	)
	return NewLocationExtractorWith(strategies...)
}

// NewLocationExtractorWith builds an extractor from an explicit chain.
func NewLocationExtractorWith(strategies ...LocationStrategy) *LocationExtractor {
	return &LocationExtractor{strategies: strategies}
}

// Extract runs the chain over text, which should be LocationText. It returns
// nil when no strategy succeeds.
func (e *LocationExtractor) Extract(text string) *LocationCandidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, s := range e.strategies {
		if found, ok := s.Find(text); ok && found != "" {
			return &LocationCandidate{Text: found, Source: s.Source}
		}
	}
	return nil
}

// locationPattern captures a city and/or state code. Index 0 means the group is absent.
type locationPattern struct {
	re        *regexp.Regexp
	cityGroup int
	codeGroup int
}

const (
	// anyCity is one to three words of letters in any case. Only used when a
	// comma separates the city from the state code.
	anyCity = `((?:[A-Za-z]+\s+){0,2}?[A-Za-z]+)`
	// capitalizedCity requires each word to start uppercase. Used wherever no
	// comma anchors the match.
	capitalizedCity = `((?:[A-Z][A-Za-z]*\s+){0,2}?[A-Z][A-Za-z]*)`
	stateCode       = `([A-Z]{2})\b`
)

// contextKeywords are ordered from most to least specific.
var contextKeywords = []string{
	`emergency\s+in`,
	`crisis\s+in`,
	`need\s+help\s+in`,
	`stranded\s+in`,
	`stuck\s+in`,
	`located\s+in`,
	`based\s+in`,
	`in`,
	`from`,
	`at`,
	`near`,
	`around`,
}

var locationPatterns = buildLocationPatterns()

func buildLocationPatterns() []locationPattern {
	patterns := make([]locationPattern, 0, 2*len(contextKeywords)+3)
	for _, kw := range contextKeywords {
		prefix := `(?i:\b` + kw + `)\s+`
		patterns = append(patterns,
			locationPattern{re: regexp.MustCompile(prefix + anyCity + `\s*,\s*` + stateCode), cityGroup: 1, codeGroup: 2},
			locationPattern{re: regexp.MustCompile(prefix + capitalizedCity + `\s+` + stateCode), cityGroup: 1, codeGroup: 2},
		)
	}
	return append(patterns,
		locationPattern{re: regexp.MustCompile(`\b` + anyCity + `\s*,\s*` + stateCode), cityGroup: 1, codeGroup: 2},
		locationPattern{re: regexp.MustCompile(`\b` + capitalizedCity + `\s+` + stateCode), cityGroup: 1, codeGroup: 2},
		locationPattern{re: regexp.MustCompile(`\b([A-Z]{2})\s+(?i:area|region|state)\b`), codeGroup: 1},
	)
}

func patternStrategy(g *Gazetteer) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, p := range locationPatterns {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			code := m[p.codeGroup]
			if !g.IsStateCode(code) {
				continue
			}
			if p.cityGroup == 0 {
				return code, true
			}
			city := strings.ToLower(strings.Join(strings.Fields(m[p.cityGroup]), " "))
			return city + ", " + code, true
		}
		return "", false
	}
}

func entityStrategy(ner EntityRecognizer) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, ent := range ner.Entities(text) {
			if ent.Label != LabelGPE && ent.Label != LabelLocation {
				continue
			}
			if name := strings.ToLower(strings.TrimSpace(ent.Text)); name != "" {
				return name, true
			}
		}
		return "", false
	}
}

func gazetteerStrategy(g *Gazetteer) func(string) (string, bool) {
	return func(text string) (string, bool) {
		tokens := strings.Fields(strings.ToLower(text))
		for i := range tokens {
			tokens[i] = strings.TrimFunc(tokens[i], func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
		}
		for i := range tokens {
			// Longest window first so "new york" beats "york" and "west virginia" beats "virginia".
			for n := min(g.maxNameWords, len(tokens)-i); n >= 1; n-- {
				name := strings.Join(tokens[i:i+n], " ")
				if g.IsCity(name) || g.IsStateName(name) {
					return name, true
				}
			}
		}
		return "", false
	}
}

var bareCodeRe = regexp.MustCompile(`\b([A-Z]{2})\b`)

func stateCodeStrategy(g *Gazetteer) func(string) (string, bool) {
	return func(text string) (string, bool) {
		for _, m := range bareCodeRe.FindAllStringSubmatch(text, -1) {
			if g.IsStateCode(m[1]) {
				return m[1], true
			}
		}
		return "", false
	}
}
