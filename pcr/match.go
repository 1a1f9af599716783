package pcr

// match is a primer binding site on one strand of a template.
type match struct {
	pos        int
	mismatches int
	length     int
}

// findMatches returns the sites of seq where primer binds with at most maxMM
// mismatches and with its last minPerfect bases matching exactly.
func findMatches(seq, primer string, maxMM, minPerfect int) []match {
	pl := len(primer)
	if pl == 0 || len(seq) < pl {
		return nil
	}
	var out []match
window:
	for pos := 0; pos <= len(seq)-pl; pos++ {
		mm := 0
		for j := 0; j < pl; j++ {
			if BaseMatch(seq[pos+j], primer[j]) {
				continue
			}
			if j >= pl-minPerfect {
				continue window
			}
			if mm++; mm > maxMM {
				continue window
			}
		}
		out = append(out, match{pos: pos, mismatches: mm, length: pl})
	}
	return out
}
