// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pileup computes per-position read depth over a region of a locus
// reference from SAM text.
package pileup

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/sbt/encoding/samtext"
)

type Opts struct {
	// FlagExclude drops records with any of these flag bits set.
	FlagExclude sam.Flags
	// MinDepth is the depth a position needs to count as covered.
	MinDepth int
}

// DefaultOpts matches the read filter of samtools depth.
var DefaultOpts = Opts{
	FlagExclude: sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate,
	MinDepth:    3,
}

// Summary describes the depth over a closed 1-based region.
type Summary struct {
	Ref   string
	Start int
	Stop  int
	// Depths[i] is the depth at position Start+i.
	Depths []int
	// PercentCovered is the share of positions with depth >= MinDepth.
	PercentCovered float64
	MeanDepth      float64
	MinDepth       int
	// BelowMin is the number of positions with depth < MinDepth.
	BelowMin int
}

// Adequate reports whether every position reaches min.
func (s Summary) Adequate(min int) bool {
	if len(s.Depths) == 0 {
		return false
	}
	for _, d := range s.Depths {
		if d < min {
			return false
		}
	}
	return true
}

// addRecord adds the aligned bases of rec to depths, which covers
// [start, start+len(depths)).
func addRecord(depths []int, start int, rec samtext.Record) {
	pos := rec.Pos
	for _, co := range rec.Cigar {
		n := co.Len()
		switch co.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				if j := pos + i - start; j >= 0 && j < len(depths) {
					depths[j]++
				}
			}
			pos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			pos += n
		}
	}
}

// Depth reads SAM text from r and summarizes the depth of records aligned to
// refName over [start, stop].
func Depth(r io.Reader, refName string, start, stop int, opts Opts) (Summary, error) {
	if start < 1 || stop < start {
		return Summary{}, errors.E(errors.Invalid, fmt.Sprintf("bad region %s:%d-%d", refName, start, stop))
	}
	depths := make([]int, stop-start+1)
	sc := samtext.NewScanner(r)
	for sc.Scan() {
		rec := sc.Record()
		if rec.Ref != refName || rec.Flags&opts.FlagExclude != 0 || !rec.Mapped() {
			continue
		}
		addRecord(depths, start, rec)
	}
	if err := sc.Err(); err != nil {
		return Summary{}, errors.E(err, "depth")
	}
	s := summarize(refName, start, stop, depths, opts.MinDepth)
	log.Debug.Printf("depth %s:%d-%d: %.1f%% covered, mean %.1f, min %d, %d below %d",
		refName, start, stop, s.PercentCovered, s.MeanDepth, s.MinDepth, s.BelowMin, opts.MinDepth)
	return s, nil
}

func summarize(refName string, start, stop int, depths []int, min int) Summary {
	s := Summary{Ref: refName, Start: start, Stop: stop, Depths: depths, MinDepth: depths[0]}
	var total int
	for _, d := range depths {
		total += d
		if d < s.MinDepth {
			s.MinDepth = d
		}
		if d < min {
			s.BelowMin++
		}
	}
	s.MeanDepth = float64(total) / float64(len(depths))
	s.PercentCovered = 100 * float64(len(depths)-s.BelowMin) / float64(len(depths))
	return s
}

// DepthFile is Depth on the SAM file at path.
func DepthFile(ctx context.Context, path, refName string, start, stop int, opts Opts) (s Summary, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return Summary{}, errors.E(err, "open", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if s, err = Depth(in.Reader(ctx), refName, start, stop, opts); err != nil {
		return Summary{}, errors.E(err, path)
	}
	return s, nil
}

// WriteTSV writes one "#CHROM POS REF DP" row per position. seq is the full
// reference sequence.
func (s Summary) WriteTSV(w io.Writer, seq string) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("#CHROM\tPOS\tREF\tDP")
	if err := tw.EndLine(); err != nil {
		return err
	}
	for i, d := range s.Depths {
		pos := s.Start + i
		tw.WriteString(s.Ref)
		tw.WriteUint32(uint32(pos))
		if pos <= len(seq) {
			tw.WriteByte(seq[pos-1])
		} else {
			tw.WriteByte('N')
		}
		tw.WriteUint32(uint32(d))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
