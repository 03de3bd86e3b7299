/*
   imdkit - ImageDisk (IMD) floppy image tools
   Copyright (c) 2025, the imdkit authors

   imdkit is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   imdkit is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with imdkit. If not, see <http://www.gnu.org/licenses/>.
*/

/*
Package check streams an IMD image track by track and accumulates
structural and statistical findings without materializing the file. Unlike
the strict codec readers, the scan is tolerant: non-fatal findings become
bits in a failure mask, and the caller's error mask decides which of them
count as errors.
*/
package check

import (
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/imd"
)

// Check bits. One bit per check; the values match the masks the classic
// imdchk tool documents, so masks remain portable across implementations.
// 0x0008 was a stream-position check with no analog here and stays
// unassigned.
const (
	CheckHeader         uint32 = 0x0001
	CheckCommentTerm    uint32 = 0x0002
	CheckTrackRead      uint32 = 0x0004
	CheckConCyl         uint32 = 0x0010
	CheckConHead        uint32 = 0x0020
	CheckConSectors     uint32 = 0x0040
	CheckSeqCylDecrease uint32 = 0x0080
	CheckSeqHeadOrder   uint32 = 0x0100
	CheckDupeSectorID   uint32 = 0x0200
	CheckInvSFlagValue  uint32 = 0x0400
	CheckDataErrFlag    uint32 = 0x0800
	CheckDeletedDAMFlag uint32 = 0x1000
	CheckDiffMaxCyl     uint32 = 0x2000
)

// DefaultErrorMask classifies the sequencing and statistical checks as
// warnings and everything else as errors.
const DefaultErrorMask = CheckHeader | CheckCommentTerm | CheckTrackRead |
	CheckConCyl | CheckConHead | CheckConSectors |
	CheckDupeSectorID | CheckInvSFlagValue

// Description returns a human-readable name for a single check bit.
func Description(bit uint32) string {
	switch bit {
	case CheckHeader:
		return "Invalid Header"
	case CheckCommentTerm:
		return "Bad Comment Terminator"
	case CheckTrackRead:
		return "Track Read Failure"
	case CheckConCyl:
		return "Cylinder Constraint Violation"
	case CheckConHead:
		return "Head Constraint Violation"
	case CheckConSectors:
		return "Sector Constraint Violation"
	case CheckSeqCylDecrease:
		return "Cylinder Sequence Decrease"
	case CheckSeqHeadOrder:
		return "Head Sequence Out of Order"
	case CheckDupeSectorID:
		return "Duplicate Sector ID"
	case CheckInvSFlagValue:
		return "Invalid Sector Flag Value"
	case CheckDataErrFlag:
		return "Data Error Flag Set"
	case CheckDeletedDAMFlag:
		return "Deleted DAM Flag Set"
	case CheckDiffMaxCyl:
		return "Max Cylinder Differs Between Sides"
	}
	return "Unknown Check"
}

/*
	Options configures a scan. The error mask partitions check bits into
	errors and warnings; it never changes which checks run. Constraints set
	to -1 are not evaluated.
*/
type Options struct {
	ErrorMask uint32

	MaxCyl       int // highest allowed cylinder number, -1 = unconstrained
	RequiredHead int // required head value, -1 = unconstrained
	MaxSectors   int // highest allowed sectors per track, -1 = unconstrained
}

// NewOptions returns Options with the default error mask and no
// constraints.
func NewOptions() *Options {
	return &Options{
		ErrorMask:    DefaultErrorMask,
		MaxCyl:       -1,
		RequiredHead: -1,
		MaxSectors:   -1,
	}
}

// Results is the accumulated outcome of one scan. It is valid, though
// partial, even when File also returns an error.
type Results struct {
	TrackReadCount int
	MaxHeadSeen    int // -1 before any track was read
	MaxCylSide0    int
	MaxCylSide1    int

	// DetectedInterleave is the factor of the first multi-sector track, or
	// 0 once tracks disagree or none matches; -1 when never determined.
	DetectedInterleave int

	TotalSectors       int64
	UnavailableSectors int64
	CompressedSectors  int64
	DeletedSectors     int64
	DataErrorSectors   int64

	// CheckFailuresMask has one bit per failed check, independent of the
	// error mask.
	CheckFailuresMask uint32
}

// Passed reports whether no failed check is classified as an error by
// mask.
func (r *Results) Passed(mask uint32) bool {
	return r.CheckFailuresMask&mask == 0
}

// FailedChecks lists the descriptions of all failed checks.
func (r *Results) FailedChecks() []string {
	var out []string
	for bit := uint32(1); bit != 0; bit <<= 1 {
		if r.CheckFailuresMask&bit != 0 {
			out = append(out, Description(bit))
		}
	}
	return out
}

// Summary renders a short human-readable report.
func (r *Results) Summary() string {

	var sb strings.Builder

	fmt.Fprintf(&sb, "tracks scanned: %d\n", r.TrackReadCount)
	if r.MaxHeadSeen >= 0 {
		fmt.Fprintf(&sb, "detected sides: %d\n", r.MaxHeadSeen+1)
		fmt.Fprintf(&sb, "max cylinder side 0: %d\n", r.MaxCylSide0)
		if r.MaxHeadSeen >= 1 {
			fmt.Fprintf(&sb, "max cylinder side 1: %d\n", r.MaxCylSide1)
		}
	}
	switch {
	case r.DetectedInterleave > 0:
		fmt.Fprintf(&sb, "detected interleave: %d\n", r.DetectedInterleave)
	case r.DetectedInterleave == 0:
		sb.WriteString("detected interleave: unknown\n")
	}
	fmt.Fprintf(&sb,
		"sectors: %d total, %d unavailable, %d compressed, %d deleted, %d bad\n",
		r.TotalSectors, r.UnavailableSectors, r.CompressedSectors,
		r.DeletedSectors, r.DataErrorSectors)
	fmt.Fprintf(&sb, "check failures mask: 0x%04x\n", r.CheckFailuresMask)
	for _, d := range r.FailedChecks() {
		fmt.Fprintf(&sb, "  - %s\n", d)
	}

	return sb.String()
}

//
type scanner struct {
	opts    *Options
	results *Results

	lastCylForHead [2]int
	lastCyl        int
	lastHead       int
	haveTrack      bool
}

/*
	File scans an entire image from r. The returned Results are always
	non-nil; a non-nil error means the scan could not finish (unreadable
	header aside, that is a track read failure, since there is no safe way
	to resynchronize mid-track). Comment problems are recorded in the mask
	but do not stop the scan.
*/
func File(r io.Reader, opts *Options) (*Results, error) {

	if opts == nil {
		opts = NewOptions()
	}

	s := &scanner{
		opts: opts,
		results: &Results{
			MaxHeadSeen:        -1,
			DetectedInterleave: -1,
		},
		lastCylForHead: [2]int{-1, -1},
	}
	res := s.results

	if _, err := imd.ReadHeader(r); err != nil {
		res.CheckFailuresMask |= CheckHeader
		return res, fmt.Errorf("reading image header: %w", err)
	}

	if err := imd.SkipComment(r); err != nil {
		// Tolerated: the scan resumes wherever the comment scan gave up,
		// which for a missing terminator is end of stream.
		res.CheckFailuresMask |= CheckCommentTerm
		log.Warnf("comment block: %v", err)
	}

	for {
		t, err := imd.ReadTrackHeader(r, false)
		if err != nil {
			res.CheckFailuresMask |= CheckTrackRead
			return res, fmt.Errorf("reading track %d: %w",
				res.TrackReadCount, err)
		}
		if t == nil {
			break // clean EOF
		}
		s.scanTrack(t)
	}

	s.finish()
	return res, nil
}

//
func (s *scanner) scanTrack(t *imd.Track) {

	res := s.results
	res.TrackReadCount++

	cyl, head := int(t.Cyl), int(t.Head)

	if head > res.MaxHeadSeen {
		res.MaxHeadSeen = head
	}
	side := head & 1
	if side == 0 {
		if cyl > res.MaxCylSide0 {
			res.MaxCylSide0 = cyl
		}
	} else {
		if cyl > res.MaxCylSide1 {
			res.MaxCylSide1 = cyl
		}
	}

	// sequencing across consecutive tracks
	if s.lastCylForHead[side] > cyl {
		res.CheckFailuresMask |= CheckSeqCylDecrease
		log.Warnf("cylinder decreases on head %d: %d after %d",
			head, cyl, s.lastCylForHead[side])
	}
	s.lastCylForHead[side] = cyl

	if s.haveTrack && cyl == s.lastCyl && head < s.lastHead {
		res.CheckFailuresMask |= CheckSeqHeadOrder
		log.Warnf("head order regresses on cylinder %d: %d after %d",
			cyl, head, s.lastHead)
	}
	s.lastCyl, s.lastHead, s.haveTrack = cyl, head, true

	// caller-supplied constraints
	if s.opts.MaxCyl >= 0 && cyl > s.opts.MaxCyl {
		res.CheckFailuresMask |= CheckConCyl
	}
	if s.opts.RequiredHead >= 0 && head != s.opts.RequiredHead {
		res.CheckFailuresMask |= CheckConHead
	}
	if s.opts.MaxSectors >= 0 && t.NumSectors > s.opts.MaxSectors {
		res.CheckFailuresMask |= CheckConSectors
	}

	if t.HasDuplicateIDs() {
		res.CheckFailuresMask |= CheckDupeSectorID
		log.Warnf("duplicate sector ID on C:%d H:%d", cyl, head)
	}

	for _, f := range t.SFlag {
		res.TotalSectors++
		if !imd.ValidFlag(f) {
			res.CheckFailuresMask |= CheckInvSFlagValue
			continue
		}
		if !imd.HasData(f) {
			res.UnavailableSectors++
			continue
		}
		if imd.IsCompressed(f) {
			res.CompressedSectors++
		}
		if imd.HasDAM(f) {
			res.DeletedSectors++
			res.CheckFailuresMask |= CheckDeletedDAMFlag
		}
		if imd.HasErr(f) {
			res.DataErrorSectors++
			res.CheckFailuresMask |= CheckDataErrFlag
		}
	}

	if t.NumSectors > 1 {
		il := imd.CalculateBestInterleave(t.SMap)
		switch res.DetectedInterleave {
		case -1:
			res.DetectedInterleave = il
		case il:
			// unchanged
		default:
			res.DetectedInterleave = 0
		}
	}
}

// finish evaluates the end-of-scan checks.
func (s *scanner) finish() {
	res := s.results
	if res.MaxHeadSeen >= 1 && res.MaxCylSide0 != res.MaxCylSide1 {
		res.CheckFailuresMask |= CheckDiffMaxCyl
	}
}

// IsFatal reports whether an error returned by File means the underlying
// stream failed, as opposed to the image being malformed.
func IsFatal(err error) bool {
	return err != nil && !imd.IsFormat(err) &&
		!errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF)
}
