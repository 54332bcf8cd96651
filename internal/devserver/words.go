package devserver

import "strings"

// Letter sets dealt to new games, each paired with the stock dictionary
// below. Enough for local play; the production dictionary lives server-side
// and is out of scope here.
var letterSets = []string{
	"ACTSER",
	"PLANETS",
	"STONER",
}

var dictionary = buildDictionary([]string{
	"ACE", "ACES", "ACT", "ACTS", "ARC", "ARCS", "ARE", "ART", "ARTS",
	"ATE", "CAR", "CARE", "CARES", "CARS", "CART", "CARTS", "CASE", "CAST",
	"CASTER", "CAT", "CATS", "CATER", "CATERS", "CRATE", "CRATES", "EAR",
	"EARS", "EAST", "EAT", "EATS", "ERA", "ERAS", "RACE", "RACES", "RAT",
	"RATE", "RATES", "RATS", "REACT", "REACTS", "REST", "SCAR", "SCARE",
	"SEA", "SEAR", "SEAT", "SECT", "STAR", "STARE", "TRACE", "TRACES",
	"LANE", "LANES", "LEAN", "LEANS", "PALE", "PALES", "PANE", "PANEL",
	"PANELS", "PANES", "PLAN", "PLANE", "PLANES", "PLANET", "PLANETS",
	"PLANS", "PLANT", "PLANTS", "PLATE", "PLATES", "PLEA", "PLEAS",
	"NEST", "NESTS", "NET", "NETS", "NOSE", "NOTE", "NOTES", "ONE", "ONES",
	"ROSE", "ROTE", "SNORE", "SNORT", "SORE", "SORT", "STONE",
	"STONER", "STORE", "TENOR", "TENORS", "TONE", "TONER", "TONES", "TORE",
	"TORN",
})

func buildDictionary(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToUpper(w)] = true
	}
	return m
}

// canBuild reports whether word can be assembled from the dealt letters,
// consuming each letter at most once.
func canBuild(word, letters string) bool {
	avail := map[rune]int{}
	for _, r := range letters {
		avail[r]++
	}
	for _, r := range strings.ToUpper(word) {
		if avail[r] == 0 {
			return false
		}
		avail[r]--
	}
	return true
}

// points is the scoring rule: one point per letter.
func points(word string) int { return len(word) }

// possibleWords counts dictionary entries buildable from the letters.
func possibleWords(letters string) int {
	n := 0
	for w := range dictionary {
		if canBuild(w, letters) {
			n++
		}
	}
	return n
}

func normalize(word string) string {
	return strings.ToUpper(strings.TrimSpace(word))
}

func contains(list []string, w string) bool {
	for _, x := range list {
		if x == w {
			return true
		}
	}
	return false
}

// validWord checks a submission against the letters and the dictionary.
func validWord(word, letters string) bool {
	w := strings.ToUpper(strings.TrimSpace(word))
	if len(w) < 2 {
		return false
	}
	return dictionary[w] && canBuild(w, letters)
}
