// core/dna/rc.go
package dna

var complement [256]byte

func init() {
	for _, p := range []struct{ b, c byte }{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'}, {'N', 'N'},
	} {
		complement[p.b] = p.c
		complement[p.b+'a'-'A'] = p.c + 'a' - 'A'
	}
}

// RevComp returns the reverse complement of seq. Case is preserved and any
// symbol outside the alphabet becomes 'N'.
func RevComp(seq []byte) []byte {
	n := len(seq)
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := complement[seq[n-1-i]]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return out
}
