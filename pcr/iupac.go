package pcr

var iupac = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T",
	'R': "AG", 'Y': "CT", 'S': "GC", 'W': "AT",
	'K': "GT", 'M': "AC", 'B': "CGT", 'D': "AGT",
	'H': "ACT", 'V': "ACG", 'N': "ACGT",
}

// BaseMatch reports whether template base g is one of the bases allowed by
// primer code p, e.g. BaseMatch('G', 'R') is true.
func BaseMatch(g, p byte) bool {
	allowed, ok := iupac[p]
	if !ok {
		return false
	}
	for i := 0; i < len(allowed); i++ {
		if g == allowed[i] {
			return true
		}
	}
	return false
}

var complement = map[byte]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A',
	'R': 'Y', 'Y': 'R',
	'S': 'S', 'W': 'W',
	'K': 'M', 'M': 'K',
	'B': 'V', 'V': 'B',
	'D': 'H', 'H': 'D',
	'N': 'N',
}

// RevComp returns the reverse complement of seq. Unknown codes become N.
func RevComp(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		if c, ok := complement[seq[n-1-i]]; ok {
			out[i] = c
		} else {
			out[i] = 'N'
		}
	}
	return string(out)
}
