package codename

import (
	"math/rand"
)

// DefaultAdjectives and DefaultNouns seed the offline generator when no
// content pack overrides them.
var (
	DefaultAdjectives = []string{
		"Jolly", "Frosty", "Sneaky", "Velvet", "Tinsel", "Midnight", "Crimson",
		"Silent", "Sly", "Golden", "Merry", "Shadow", "Sparkling", "Cunning",
		"Twinkling", "Whispering", "Nimble", "Gilded", "Peppermint", "Snowy",
	}
	DefaultNouns = []string{
		"Boots", "Mittens", "Fox", "Bandit", "Sparrow", "Reindeer", "Ribbon",
		"Cracker", "Ghost", "Comet", "Nutcracker", "Gumdrop", "Raven", "Lantern",
		"Snowglobe", "Jackal", "Sleigh", "Magpie", "Pinecone", "Wrapper",
	}
)

// Offline produces adjective+noun codenames without any network call.
type Offline struct {
	adjectives []string
	nouns      []string
	intn       func(n int) int
}

// NewOffline creates an offline generator. Empty pools fall back to the
// defaults.
func NewOffline(adjectives, nouns []string) *Offline {
	if len(adjectives) == 0 {
		adjectives = DefaultAdjectives
	}
	if len(nouns) == 0 {
		nouns = DefaultNouns
	}
	return &Offline{
		adjectives: adjectives,
		nouns:      nouns,
		intn:       rand.Intn,
	}
}

// Generate returns a random two-word codename.
func (o *Offline) Generate() string {
	return o.adjectives[o.intn(len(o.adjectives))] + " " + o.nouns[o.intn(len(o.nouns))]
}
