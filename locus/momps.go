package locus

// parisMompS is the mompS region of L. pneumophila Paris,
// NC_006368.1:3453389-3455389.
const parisMompS = "" +
	"GTTATCAATAAAATGGAAACTCAATAATAAACAAGTGGAGACAAGGCATGTTTAGTTTGAAAAAAACAGCAGTGGCAGTA" +
	"CTCGCCTTAGGAAGCGGTGCAGTGTTTGCTGGAACCATGGGACCAGTTTGCACCCCAGGTAATGTAACTGTTCCTTGCGA" +
	"AAGAACTGCATGGGATATTGGTATCACCGCACTATATTTGCAACCAATCTATGATGCTGATTGGGGCTACAATGGTTTCA" +
	"CCCAAGTTGGTGGCTGGCAGCATTGGCATGATGTTGACCATGAGTGGGATTGGGGCTTCAAATTAGAAGGTTCTTATCAC" +
	"TTCAATACTGGTAATGACATCAATGTGAACTGGTATCATTTTGATAATGACAGTGATCACTGGGCTGATTTTGCTAACTG" +
	"GCACAACTACAACAACAAGTGGGATGCTGTTAATGCTGAATTAGGTCAATTCGTAGATTTCAGCGCTAACAAGAAAATGC" +
	"GTTTCCACGGCGGTGTTCAATACGCTCGCATTGAAGCTGATGTGAACCGTTATTTCAATAACTTTGCCTTTAACGGGTTC" +
	"AACTCTAAGTTCAATGGCTTTGGTCCTCGCACTGGTTTAGACATGAACTATGTATTTGGCAATGGCTTTGGTGTTTATGC" +
	"TAAAGGCGCTGCTGCTATTCTGGTTGGTACCAGCGATTTCTACGATGGAATCAACTTCATTACTGGTTCTAAAAATGCTA" +
	"TCGTTCCTGAGTTGGAAGCTAAGCTTGGTGCTGATTACACTTACGCAATGGCTCAAGGCGATTTGACTTTAGACGTTGGT" +
	"TACATGTGGTTTAACTACTTCAACGCTATGCACAATACTGGCGTATTTAATGGATTTGAAACTGATTTCGCAGCTTCTGG" +
	"TCCTTACATTGGCTTGAAGTATGTTGGTAATGTGTAATTTGTTAAGTTGATAAGAAATTTCAGCAATACTGTTGACTTTA" +
	"TAGAAGTCCGGCTGGATAATTTATCCA"

var mompS *Reference

func init() {
	var err error
	mompS, err = New(Spec{
		Name:        "Paris_mompS_R",
		Seq:         parisMompS,
		AlleleStart: 367,
		AlleleStop:  718,
		FlankStart:  15,
		FlankStop:   972,
		Outer:       PrimerPair{ID: "mompS_1", Forward: "TTGACCATGAGTGGGATTGG", Reverse: "TGGATAAATTATCCAGCCGGACTTC"},
		Nested:      PrimerPair{ID: "mompS_2", Forward: "TTGACCATGAGTGGGATTGG", Reverse: "CAGAAGCTGCGAAATCAG"},
	})
	if err != nil {
		panic(err)
	}
}

// MompSReference returns the built-in mompS mapping reference.
func MompSReference() *Reference { return mompS }
