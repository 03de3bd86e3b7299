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
Package compare diffs two IMD images semantically, track by track, after
decompression. Cosmetic differences in sector compression are separated
from content differences, so re-encoded images can be verified against
their originals.
*/
package compare

import (
	"bytes"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/imd"
)

// Difference categories, one bit each.
const (
	DiffComment    uint32 = 0x002
	DiffTrackHdr   uint32 = 0x004
	DiffTrackMap   uint32 = 0x008
	DiffTrackData  uint32 = 0x010
	DiffTrackFlag  uint32 = 0x020
	DiffCompress   uint32 = 0x040
	DiffInterleave uint32 = 0x080
	DiffStructure  uint32 = 0x100
)

// HardDiffMask covers the categories that make two images materially
// different. Compression and interleave differences are soft; they change
// only the encoding, not the recovered data.
const HardDiffMask = DiffComment | DiffTrackHdr | DiffTrackMap |
	DiffTrackData | DiffTrackFlag | DiffStructure

// Outcome classifies the overall result of a comparison.
type Outcome int

const (
	OutcomeMatch Outcome = iota
	OutcomeDiffer
	OutcomeCompressOnly
	OutcomeInterleaveOnly
)

//
func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeDiffer:
		return "differ"
	case OutcomeCompressOnly:
		return "differ only in compression"
	case OutcomeInterleaveOnly:
		return "differ only in interleave"
	}
	return "unknown"
}

// Options configures a comparison.
type Options struct {
	// IgnoreCompression drops compression-only flag differences entirely.
	IgnoreCompression bool
	// FillByte substitutes for unavailable sector data; zero means the
	// format default.
	FillByte byte
}

// Finding describes one difference, with enough location context to act
// on it.
type Finding struct {
	Category uint32
	Track    int // 1-based track ordinal, 0 for file-level findings
	Cyl      int
	Head     int
	Slot     int // sector slot within the track, -1 if not sector-level
	SectorID int
	Detail   string
}

//
func (f Finding) String() string {
	if f.Track == 0 {
		return f.Detail
	}
	if f.Slot < 0 {
		return fmt.Sprintf("track %d (C:%d H:%d): %s",
			f.Track, f.Cyl, f.Head, f.Detail)
	}
	return fmt.Sprintf("track %d (C:%d H:%d) sector %d (ID %d): %s",
		f.Track, f.Cyl, f.Head, f.Slot, f.SectorID, f.Detail)
}

// Results holds everything a comparison found. DiffMask aggregates the
// category bits of all findings.
type Results struct {
	DiffMask       uint32
	Findings       []Finding
	TracksCompared int
}

// Outcome reduces the mask to the overall classification.
func (r *Results) Outcome() Outcome {
	switch {
	case r.DiffMask == 0:
		return OutcomeMatch
	case r.DiffMask&HardDiffMask != 0:
		return OutcomeDiffer
	case r.DiffMask == DiffCompress:
		return OutcomeCompressOnly
	case r.DiffMask == DiffInterleave:
		return OutcomeInterleaveOnly
	}
	// several soft categories at once
	return OutcomeDiffer
}

//
type differ struct {
	opts    *Options
	results *Results
}

func (d *differ) add(f Finding) {
	d.results.DiffMask |= f.Category
	d.results.Findings = append(d.results.Findings, f)
	log.Debugf("compare: %s", f)
}

/*
	Images compares the images read from r1 and r2. Comparison stops early
	once a track carries a hard difference, since everything after it is
	unlikely to line up. The error return is reserved for read failures;
	mere differences are reported through Results.
*/
func Images(r1, r2 io.Reader, opts *Options) (*Results, error) {

	if opts == nil {
		opts = &Options{}
	}
	fill := opts.FillByte
	if fill == 0 {
		fill = imd.FillByteDefault
	}

	d := &differ{opts: opts, results: &Results{}}

	if _, err := imd.ReadHeader(r1); err != nil {
		return d.results, fmt.Errorf("image 1: %w", err)
	}
	if _, err := imd.ReadHeader(r2); err != nil {
		return d.results, fmt.Errorf("image 2: %w", err)
	}

	c1, err := imd.ReadComment(r1)
	if err != nil {
		return d.results, fmt.Errorf("image 1 comment: %w", err)
	}
	c2, err := imd.ReadComment(r2)
	if err != nil {
		return d.results, fmt.Errorf("image 2 comment: %w", err)
	}
	if !bytes.Equal(c1, c2) {
		d.add(Finding{
			Category: DiffComment,
			Slot:     -1,
			Detail: fmt.Sprintf("comments differ (%d vs %d bytes)",
				len(c1), len(c2)),
		})
	}

	for {
		t1, err := imd.ReadTrack(r1, fill, true)
		if err != nil {
			return d.results, fmt.Errorf("image 1 track %d: %w",
				d.results.TracksCompared+1, err)
		}
		t2, err := imd.ReadTrack(r2, fill, true)
		if err != nil {
			return d.results, fmt.Errorf("image 2 track %d: %w",
				d.results.TracksCompared+1, err)
		}

		if (t1 == nil) != (t2 == nil) {
			short := 1
			if t2 == nil {
				short = 2
			}
			d.add(Finding{
				Category: DiffStructure,
				Slot:     -1,
				Detail: fmt.Sprintf(
					"track counts differ, image %d ends after %d tracks",
					short, d.results.TracksCompared),
			})
			break
		}
		if t1 == nil {
			break
		}

		d.results.TracksCompared++
		d.compareTrack(d.results.TracksCompared, t1, t2)

		if d.results.DiffMask&HardDiffMask != 0 {
			break
		}
	}

	return d.results, nil
}

//
func (d *differ) compareTrack(n int, t1, t2 *imd.Track) {

	base := Finding{
		Track: n,
		Cyl:   int(t1.Cyl),
		Head:  int(t1.Head),
		Slot:  -1,
	}

	if t1.Mode != t2.Mode || t1.Cyl != t2.Cyl || t1.Head != t2.Head ||
		t1.NumSectors != t2.NumSectors || t1.SizeCode != t2.SizeCode ||
		t1.HFlag != t2.HFlag {
		f := base
		f.Category = DiffTrackHdr
		f.Detail = fmt.Sprintf(
			"headers differ (mode %d/%d, C %d/%d, H %d/%d, sectors %d/%d, size code %d/%d, head flags 0x%02x/0x%02x)",
			t1.Mode, t2.Mode, t1.Cyl, t2.Cyl, t1.Head, t2.Head,
			t1.NumSectors, t2.NumSectors, t1.SizeCode, t2.SizeCode,
			t1.HFlag, t2.HFlag)
		d.add(f)
		// maps and data are meaningless to compare when the geometry
		// already disagrees
		return
	}

	if t1.HasCylMap() && !bytes.Equal(t1.CMap, t2.CMap) {
		f := base
		f.Category = DiffTrackMap
		f.Detail = "cylinder maps differ"
		d.add(f)
	}
	if t1.HasHeadMap() && !bytes.Equal(t1.HMap, t2.HMap) {
		f := base
		f.Category = DiffTrackMap
		f.Detail = "head maps differ"
		d.add(f)
	}
	if !bytes.Equal(t1.SMap, t2.SMap) {
		f := base
		f.Category = DiffTrackMap
		f.Detail = "sector numbering maps differ"
		d.add(f)
	}

	il1 := imd.CalculateBestInterleave(t1.SMap)
	il2 := imd.CalculateBestInterleave(t2.SMap)
	if il1 != il2 {
		f := base
		f.Category = DiffInterleave
		f.Detail = fmt.Sprintf("calculated interleave differs (%d vs %d)",
			il1, il2)
		d.add(f)
	}

	for i := 0; i < t1.NumSectors; i++ {

		sf := base
		sf.Slot = i
		sf.SectorID = int(t1.SMap[i])

		if !bytes.Equal(t1.SectorData(i), t2.SectorData(i)) {
			f := sf
			f.Category = DiffTrackData
			f.Detail = "data differs"
			d.add(f)
		}

		f1, f2 := t1.SFlag[i], t2.SFlag[i]
		if f1 == f2 {
			continue
		}

		compressOnly := imd.IsCompressed(f1) != imd.IsCompressed(f2) &&
			imd.HasData(f1) == imd.HasData(f2) &&
			imd.HasErr(f1) == imd.HasErr(f2) &&
			imd.HasDAM(f1) == imd.HasDAM(f2)

		if compressOnly {
			if !d.opts.IgnoreCompression {
				f := sf
				f.Category = DiffCompress
				f.Detail = fmt.Sprintf(
					"compression differs (0x%02x vs 0x%02x)", f1, f2)
				d.add(f)
			}
		} else {
			f := sf
			f.Category = DiffTrackFlag
			f.Detail = fmt.Sprintf("flags differ (0x%02x vs 0x%02x)", f1, f2)
			d.add(f)
		}
	}
}
