/*
bio-sbt assigns a sequence type (ST) to Legionella pneumophila isolates using
the seven-locus sequence-based typing scheme: flaA, pilE, asd, mip, mompS,
proA and neuA/neuAH.

Every locus but mompS is identified by an exact search of the isolate's
assembly against the allele databases. mompS can occur in two copies, so it is
typed either from the reads, by mapping them to a reference and keeping only
the variants supported by the pairs that anchor outside the locus, or from
the assembly with nested primers when more than one mompS allele is found.

Sample usage:
bio-sbt run \
    -id isolate1 -r1 isolate1_1.fq.gz -r2 isolate1_2.fq.gz \
    -db alleles/ -profile lpneumophila.txt -out isolate1

bio-sbt batch -parallelism 4 -db alleles/ -out runs samples.tsv

External programs are resolved on PATH and can be overridden with SBT_BWA,
SBT_SAMBAMBA, SBT_FREEBAYES, SBT_MAKEBLASTDB, SBT_BLASTN, SBT_ISPCR and
SBT_SPADES.
*/
package main
