// core/dna/random.go
package dna

import (
	"math/rand/v2"
)

// randomBases is sampled uniformly; N shows up about one time in 21.
const randomBases = "ACTGACTGACTGACTGACTGN"

const substitutionBases = "ACTG"

// Soft-masked runs start with probability maskStart per position and extend
// with probability maskCont, so they average about a hundred bases.
const (
	maskStart = 0.002
	maskCont  = 0.99
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomSequence draws length symbols from the fixture alphabet. Occasional
// runs are soft-masked (lower case), as repeats are in real assemblies.
func RandomSequence(r *rand.Rand, length int) []byte {
	if length <= 0 {
		return nil
	}
	out := make([]byte, length)
	masked := 0
	for i := range out {
		if masked == 0 && r.Float64() < maskStart {
			masked = 1 + geometric(r, maskCont)
		}
		b := randomBases[r.IntN(len(randomBases))]
		if masked > 0 {
			b |= 0x20
			masked--
		}
		out[i] = b
	}
	return out
}

// RandomName returns an alphanumeric identifier of n characters.
func RandomName(r *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[r.IntN(len(alphanumeric))]
	}
	return string(b)
}

// geometric counts successes before the first failure, each trial
// succeeding with probability p.
func geometric(r *rand.Rand, p float64) int {
	n := 0
	for r.Float64() < p {
		n++
	}
	return n
}

// Mutate copies seq applying point substitutions with probability distance
// and short insertions/deletions with probability 0.05*distance each.
// Indel lengths are geometric with continuation probability 0.9.
func Mutate(r *rand.Rand, seq []byte, distance float64) []byte {
	switch {
	case distance < 0:
		distance = 0
	case distance > 1:
		distance = 1
	}
	indel := 0.05 * distance
	const cont = 0.9

	out := make([]byte, 0, len(seq)+len(seq)/8)
	for i := 0; i < len(seq); i++ {
		if r.Float64() < distance {
			out = append(out, substitutionBases[r.IntN(len(substitutionBases))])
		} else {
			out = append(out, seq[i])
		}
		if r.Float64() < indel {
			out = append(out, RandomSequence(r, geometric(r, cont))...)
		}
		if r.Float64() < indel {
			i += geometric(r, cont)
		}
	}
	return out
}
