package domain

import (
	"strings"
)

// Gazetteer holds the static US place tables used for location matching.
// It is read-only after construction and safe for concurrent use.
type Gazetteer struct {
	cities       map[string]bool
	states       []State // table order, used for substring scans
	byName       map[string]string
	byCode       map[string]string
	maxNameWords int
}

// State pairs a lowercase state name with its two-letter code.
type State struct {
	Name string
	Code string
}

var usCities = []string{
	"new york", "los angeles", "chicago", "houston", "phoenix",
	"philadelphia", "san antonio", "san diego", "dallas", "san jose",
	"austin", "jacksonville", "fort worth", "columbus", "charlotte",
	"san francisco", "indianapolis", "seattle", "denver", "washington",
	"boston", "nashville", "detroit", "portland", "memphis",
	"oklahoma city", "las vegas", "louisville", "baltimore", "milwaukee",
	"albuquerque", "tucson", "fresno", "sacramento", "mesa",
	"kansas city", "atlanta", "miami", "omaha", "raleigh",
	"minneapolis", "cleveland", "wichita", "arlington", "new orleans",
}

var usStates = []State{
	{"alabama", "AL"}, {"alaska", "AK"}, {"arizona", "AZ"}, {"arkansas", "AR"},
	{"california", "CA"}, {"colorado", "CO"}, {"connecticut", "CT"}, {"delaware", "DE"},
	{"florida", "FL"}, {"georgia", "GA"}, {"hawaii", "HI"}, {"idaho", "ID"},
	{"illinois", "IL"}, {"indiana", "IN"}, {"iowa", "IA"}, {"kansas", "KS"},
	{"kentucky", "KY"}, {"louisiana", "LA"}, {"maine", "ME"}, {"maryland", "MD"},
	{"massachusetts", "MA"}, {"michigan", "MI"}, {"minnesota", "MN"}, {"mississippi", "MS"},
	{"missouri", "MO"}, {"montana", "MT"}, {"nebraska", "NE"}, {"nevada", "NV"},
	{"new hampshire", "NH"}, {"new jersey", "NJ"}, {"new mexico", "NM"},
	{"new york", "NY"}, {"north carolina", "NC"}, {"north dakota", "ND"},
	{"ohio", "OH"}, {"oklahoma", "OK"}, {"oregon", "OR"}, {"pennsylvania", "PA"},
	{"rhode island", "RI"}, {"south carolina", "SC"}, {"south dakota", "SD"},
	{"tennessee", "TN"}, {"texas", "TX"}, {"utah", "UT"}, {"vermont", "VT"},
	{"virginia", "VA"}, {"washington", "WA"}, {"west virginia", "WV"},
	{"wisconsin", "WI"}, {"wyoming", "WY"},
}

// NewUSGazetteer returns the gazetteer of 45 major US cities and the 50 states.
func NewUSGazetteer() *Gazetteer {
	return NewGazetteer(usCities, usStates)
}

// NewGazetteer builds a gazetteer from lowercase city names and states.
func NewGazetteer(cities []string, states []State) *Gazetteer {
	g := &Gazetteer{
		cities: make(map[string]bool, len(cities)),
		states: states,
		byName: make(map[string]string, len(states)),
		byCode: make(map[string]string, len(states)),
	}
	for _, c := range cities {
		g.cities[c] = true
		g.trackWords(c)
	}
	for _, s := range states {
		g.byName[s.Name] = s.Code
		g.byCode[s.Code] = s.Name
		g.trackWords(s.Name)
	}
	return g
}

func (g *Gazetteer) trackWords(name string) {
	if n := len(strings.Fields(name)); n > g.maxNameWords {
		g.maxNameWords = n
	}
}

// IsCity reports whether name (any case) is a known city.
func (g *Gazetteer) IsCity(name string) bool {
	return g.cities[strings.ToLower(name)]
}

// IsStateName reports whether name (any case) is a known state name.
func (g *Gazetteer) IsStateName(name string) bool {
	_, ok := g.byName[strings.ToLower(name)]
	return ok
}

// IsKnownPlace reports whether name is a bare known city or state name.
func (g *Gazetteer) IsKnownPlace(name string) bool {
	return g.IsCity(name) || g.IsStateName(name)
}

// IsStateCode reports whether code is a valid abbreviation. Matching is exact:
// "tx" is not a state code.
func (g *Gazetteer) IsStateCode(code string) bool {
	_, ok := g.byCode[code]
	return ok
}

// Abbreviation returns the two-letter code for a state name.
func (g *Gazetteer) Abbreviation(name string) (string, bool) {
	code, ok := g.byName[strings.ToLower(name)]
	return code, ok
}

// StateName returns the title-cased full name for a code, e.g. "TX" -> "Texas".
func (g *Gazetteer) StateName(code string) (string, bool) {
	name, ok := g.byCode[code]
	if !ok {
		return "", false
	}
	return titleCase(name), true
}

// ExtractState derives a state abbreviation from a resolved location string.
// It tries an exact state-name match, then a trailing or bare uppercase state
// code ("austin, TX"), then substring containment of a state name.
func (g *Gazetteer) ExtractState(location string) *string {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil
	}
	lower := strings.ToLower(location)

	if code, ok := g.byName[lower]; ok {
		return &code
	}
	fields := strings.FieldsFunc(location, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) > 0 {
		if last := fields[len(fields)-1]; g.IsStateCode(last) {
			return &last
		}
	}

	// Longest name wins so "west virginia" is not read as "virginia".
	var best State
	for _, s := range g.states {
		if len(s.Name) > len(best.Name) && strings.Contains(lower, s.Name) {
			best = s
		}
	}
	if best.Code != "" {
		return &best.Code
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
