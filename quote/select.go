package quote

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// Selection modes accepted by Pick.
const (
	ModeRandom = "random"
	ModeDaily  = "daily"
)

// Pick returns one quote from quotes. In daily mode the choice depends only
// on the UTC calendar date of now, so every call on the same day returns the
// same element. Any other mode picks uniformly at random.
func Pick(quotes []Quote, mode string, now time.Time) (Quote, error) {
	if len(quotes) == 0 {
		return Quote{}, ErrEmpty
	}
	if mode == ModeDaily {
		seed := DaySeed(now)
		r := rand.New(rand.NewPCG(seed, seed))
		return quotes[r.IntN(len(quotes))], nil
	}
	return quotes[rand.IntN(len(quotes))], nil
}

// DaySeed returns the date of t in UTC as the integer YYYYMMDD.
func DaySeed(t time.Time) uint64 {
	seed, _ := strconv.ParseUint(t.UTC().Format("20060102"), 10, 64)
	return seed
}
