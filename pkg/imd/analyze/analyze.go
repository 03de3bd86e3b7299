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
Package analyze derives the physical geometry an IMD image needs from its
track headers alone, without loading sector data, and recommends drive
types and write options for recreating the disk.
*/
package analyze

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/imdtools/imdkit/pkg/imd"
)

// Data rate bits in Analysis.RatesUsed.
const (
	Rate500k uint8 = 1 << iota
	Rate300k
	Rate250k
)

// Rough per-sector and per-track overhead on the physical medium, used to
// estimate whether a track fits the drive's raw capacity.
const (
	sectorOverheadGuess = 85
	trackOverheadGuess  = 85
)

// bytes passing the head per disk revolution at 500 kbps and 300 RPM
const bytesPerRev500k = 62500

// ErrMixedRates is returned by Recommendations when tracks use more than
// one data rate, which no single drive setup can write.
var ErrMixedRates = errors.New("mixed data rates in image")

// ErrNoRate is returned when an image has tracks but none with an
// identifiable data rate.
var ErrNoRate = errors.New("no identifiable data rate")

// DriveType identifies a physical drive class.
type DriveType int

const (
	Drive35DD DriveType = iota // 3.5" DD 80-track
	Drive35HD                  // 3.5" HD 80-track
	Drive525DD40               // 5.25" DD 40-track
	Drive525QD80               // 5.25" QD 80-track
	Drive525HD                 // 5.25" HD 80-track
	Drive8                     // 8" SS/DS 77-track
)

//
func (d DriveType) String() string {
	switch d {
	case Drive35DD:
		return `3.5" DD 80-track`
	case Drive35HD:
		return `3.5" HD 80-track`
	case Drive525DD40:
		return `5.25" DD 40-track`
	case Drive525QD80:
		return `5.25" QD 80-track`
	case Drive525HD:
		return `5.25" HD 80-track`
	case Drive8:
		return `8" SS/DS 77-track`
	}
	return "unknown drive type"
}

// Recommendation is one drive setup capable of recreating the image.
type Recommendation struct {
	Drive        DriveType
	DoubleStep   bool // image has 40-track geometry, drive has 80
	Rate300To250 bool // write 300 kbps tracks at 250
	Rate250To300 bool // write 250 kbps tracks at 300
	Notes        []string
}

//
func (r Recommendation) String() string {

	var opts []string
	if r.DoubleStep {
		opts = append(opts, "double step")
	}
	if r.Rate300To250 {
		opts = append(opts, "translate 300 to 250 kbps")
	}
	if r.Rate250To300 {
		opts = append(opts, "translate 250 to 300 kbps")
	}

	s := r.Drive.String()
	if len(opts) > 0 {
		s += " (" + strings.Join(opts, ", ") + ")"
	}
	return s
}

// Analysis is the geometry summary of one image.
type Analysis struct {
	TrackCount    int
	MaxCyl        int
	MaxHead       int
	RatesUsed     uint8
	MaxTrackBytes int // estimated raw size of the largest track
}

// Cylinders returns the number of cylinders the image spans.
func (a *Analysis) Cylinders() int {
	if a.TrackCount == 0 {
		return 0
	}
	return a.MaxCyl + 1
}

// Heads returns the number of heads the image uses.
func (a *Analysis) Heads() int {
	if a.TrackCount == 0 {
		return 0
	}
	return a.MaxHead + 1
}

// Rates lists the data rates in use, in kbps.
func (a *Analysis) Rates() []int {
	var out []int
	if a.RatesUsed&Rate250k != 0 {
		out = append(out, 250)
	}
	if a.RatesUsed&Rate300k != 0 {
		out = append(out, 300)
	}
	if a.RatesUsed&Rate500k != 0 {
		out = append(out, 500)
	}
	return out
}

// File scans all track headers of the image read from r.
func File(r io.Reader) (*Analysis, error) {

	if _, err := imd.ReadHeader(r); err != nil {
		return nil, err
	}
	if err := imd.SkipComment(r); err != nil {
		return nil, err
	}

	a := &Analysis{}

	for {
		t, err := imd.ReadTrackHeader(r, true)
		if err != nil {
			return nil, fmt.Errorf("reading track %d: %w", a.TrackCount, err)
		}
		if t == nil {
			break
		}
		a.TrackCount++

		if int(t.Cyl) > a.MaxCyl {
			a.MaxCyl = int(t.Cyl)
		}
		if int(t.Head) > a.MaxHead {
			a.MaxHead = int(t.Head)
		}

		switch imd.RateOf(t.Mode) {
		case 500:
			a.RatesUsed |= Rate500k
		case 300:
			a.RatesUsed |= Rate300k
		case 250:
			a.RatesUsed |= Rate250k
		}

		if t.NumSectors > 0 {
			b := (t.SectorSize+sectorOverheadGuess)*t.NumSectors +
				trackOverheadGuess
			if b > a.MaxTrackBytes {
				a.MaxTrackBytes = b
			}
		}
	}

	return a, nil
}

/*
	Recommendations derives the drive setups that can recreate the analyzed
	disk. Candidates are ordered most to least likely. Images mixing data
	rates cannot be written by a single setup and yield ErrMixedRates.
*/
func (a *Analysis) Recommendations() ([]Recommendation, error) {

	if a.TrackCount == 0 {
		return nil, nil
	}

	switch a.RatesUsed {
	case Rate500k, Rate300k, Rate250k:
	case 0:
		return nil, ErrNoRate
	default:
		return nil, ErrMixedRates
	}

	fortyTrack := a.MaxCyl <= 39
	var notes []string
	if fortyTrack {
		notes = append(notes,
			"40 track image will use only the first half of an 80 track drive")
	}
	if a.MaxCyl == 76 {
		notes = append(notes, "77 track image likely requires an 8\" drive")
	}

	// an 80-track drive needs double stepping for a 40-track image
	eighty := func(d DriveType) Recommendation {
		return Recommendation{Drive: d, DoubleStep: fortyTrack, Notes: notes}
	}

	var out []Recommendation

	switch a.RatesUsed {

	case Rate500k:
		if a.MaxTrackBytes < bytesPerRev500k/6 {
			notes = append(notes,
				"track size suggests a 360 RPM drive, writing at 300 RPM may leave extra gap")
		}
		out = append(out, eighty(Drive35HD), eighty(Drive525HD))
		if a.MaxCyl <= 76 {
			out = append(out, eighty(Drive8))
		}

	case Rate300k:
		r := eighty(Drive525HD)
		r.Rate300To250 = true
		out = append(out, r, eighty(Drive35DD), eighty(Drive35HD))
		r = eighty(Drive525QD80)
		r.Rate300To250 = true
		out = append(out, r)
		if fortyTrack {
			out = append(out, Recommendation{
				Drive: Drive525DD40, Rate300To250: true, Notes: notes,
			})
		}

	case Rate250k:
		if fortyTrack {
			out = append(out,
				Recommendation{Drive: Drive525DD40, Notes: notes})
		}
		out = append(out, eighty(Drive525QD80))
		r := eighty(Drive525HD)
		r.Rate250To300 = true
		out = append(out, r, eighty(Drive35DD), eighty(Drive35HD))
	}

	return out, nil
}
