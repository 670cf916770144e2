// core/dna/alphabet.go
package dna

// Symbols lists every nucleotide symbol a fixture may contain.
const Symbols = "ACGTNacgtn"

var valid [256]bool

func init() {
	for i := 0; i < len(Symbols); i++ {
		valid[Symbols[i]] = true
	}
}

// IsValid reports whether b is a nucleotide symbol.
func IsValid(b byte) bool { return valid[b] }

// Valid returns (-1, true) when every byte of seq is a nucleotide symbol,
// otherwise the offset of the first offending byte and false.
func Valid(seq []byte) (int, bool) {
	for i, b := range seq {
		if !valid[b] {
			return i, false
		}
	}
	return -1, true
}
