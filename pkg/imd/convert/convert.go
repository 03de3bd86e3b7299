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
Package convert builds IMD images from raw sector dumps. The caller
describes the disk layout, per side and optionally per track, and the
converter slices the flat input into tracks in ascending cylinder and head
order.
*/
package convert

import (
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/imd"
)

// ErrIncompleteLayout flags a layout that leaves mode, size, or sector
// map undefined for a side in use.
var ErrIncompleteLayout = errors.New("incomplete track layout")

/*
	Geometry describes the format of one track. SMap is required and
	defines the sector count; CMap and HMap are optional and, when set,
	must have the same length as SMap.
*/
type Geometry struct {
	Mode     byte
	SizeCode byte
	SMap     []byte
	CMap     []byte
	HMap     []byte
}

// Validate checks the geometry for internal consistency.
func (g *Geometry) Validate() error {

	if int(g.Mode) >= imd.NumModes {
		return fmt.Errorf("%w: mode %d", imd.ErrInvalidMode, g.Mode)
	}
	if _, ok := imd.SectorSize(g.SizeCode); !ok {
		return fmt.Errorf("%w: size code %d", imd.ErrInvalidSizeCode,
			g.SizeCode)
	}
	if len(g.SMap) == 0 {
		return fmt.Errorf("%w: empty sector map", ErrIncompleteLayout)
	}
	if len(g.SMap) > 255 {
		return fmt.Errorf("%w: %d sectors", imd.ErrTooManySectors,
			len(g.SMap))
	}
	if g.CMap != nil && len(g.CMap) != len(g.SMap) {
		return fmt.Errorf(
			"cylinder map length %d does not match %d sectors",
			len(g.CMap), len(g.SMap))
	}
	if g.HMap != nil && len(g.HMap) != len(g.SMap) {
		return fmt.Errorf("head map length %d does not match %d sectors",
			len(g.HMap), len(g.SMap))
	}

	var seen [256]bool
	for _, id := range g.SMap {
		if seen[id] {
			return fmt.Errorf("duplicate sector ID %d in sector map", id)
		}
		seen[id] = true
	}

	return nil
}

// TrackBytes returns the raw data size of one track with this geometry.
func (g *Geometry) TrackBytes() int {
	size, _ := imd.SectorSize(g.SizeCode)
	return size * len(g.SMap)
}

/*
	Layout is the full disk description. Defaults give the geometry per
	side; Overrides replaces it for individual tracks, keyed by physical
	track number, which is cylinder times sides plus head.
*/
type Layout struct {
	Cylinders int
	Sides     int
	Defaults  [2]*Geometry
	Overrides map[int]*Geometry
}

//
func (l *Layout) geometryFor(cyl, head int) *Geometry {
	if g, ok := l.Overrides[cyl*l.Sides+head]; ok {
		return g
	}
	return l.Defaults[head]
}

// Validate checks the layout and every geometry it references.
func (l *Layout) Validate() error {

	if l.Cylinders < 1 {
		return fmt.Errorf("%w: %d cylinders", ErrIncompleteLayout,
			l.Cylinders)
	}
	if l.Sides < 1 || l.Sides > 2 {
		return fmt.Errorf("%w: %d sides", ErrIncompleteLayout, l.Sides)
	}

	for h := 0; h < l.Sides; h++ {
		if l.Defaults[h] == nil {
			return fmt.Errorf("%w: no geometry for side %d",
				ErrIncompleteLayout, h)
		}
		if err := l.Defaults[h].Validate(); err != nil {
			return fmt.Errorf("side %d: %w", h, err)
		}
	}
	for t, g := range l.Overrides {
		if t < 0 || t >= l.Cylinders*l.Sides {
			return fmt.Errorf("override for track %d outside layout", t)
		}
		if g == nil {
			return fmt.Errorf("nil override for track %d", t)
		}
		if err := g.Validate(); err != nil {
			return fmt.Errorf("track %d: %w", t, err)
		}
	}

	return nil
}

// Options controls the conversion.
type Options struct {
	// FillByte pads tracks beyond the end of a short input; zero means
	// the format default.
	FillByte byte
	// Compression selects the sector encoding of the output.
	Compression imd.CompressionMode
	// Comment is written into the image's comment block.
	Comment []byte
	// Version goes into the image signature line.
	Version string
}

// NewOptions returns conversion defaults: force compression, format
// default fill byte.
func NewOptions() *Options {
	return &Options{
		FillByte:    imd.FillByteDefault,
		Compression: imd.CompressionForceCompress,
		Version:     "1.19",
	}
}

/*
	BinToIMD reads a raw sector dump from r and writes an IMD image to w,
	laid out per l. A short input pads the remaining tracks with the fill
	byte. Returns the number of raw bytes consumed from r.
*/
func BinToIMD(r io.Reader, w io.Writer, l *Layout, opts *Options) (int64, error) {

	if opts == nil {
		opts = NewOptions()
	}
	fill := opts.FillByte
	if fill == 0 {
		fill = imd.FillByteDefault
	}

	if err := l.Validate(); err != nil {
		return 0, err
	}

	if err := imd.WriteHeader(w, opts.Version); err != nil {
		return 0, err
	}
	if err := imd.WriteComment(w, opts.Comment); err != nil {
		return 0, err
	}

	wopts := &imd.WriteOptions{
		Compression: opts.Compression,
		Interleave:  imd.InterleaveAsRead,
	}

	var consumed int64
	exhausted := false

	for c := 0; c < l.Cylinders; c++ {
		for h := 0; h < l.Sides; h++ {

			g := l.geometryFor(c, h)
			size, _ := imd.SectorSize(g.SizeCode)
			n := len(g.SMap)

			data := make([]byte, size*n)
			read := 0
			if !exhausted {
				var err error
				read, err = io.ReadFull(r, data)
				consumed += int64(read)
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					exhausted = true
					log.Warnf(
						"input ends at C:%d H:%d, padding %d bytes with 0x%02x",
						c, h, len(data)-read, fill)
				} else if err != nil {
					return consumed, fmt.Errorf(
						"reading input for C:%d H:%d: %w", c, h, err)
				}
			}
			for i := read; i < len(data); i++ {
				data[i] = fill
			}

			t := &imd.Track{
				Mode:       g.Mode,
				Cyl:        byte(c),
				Head:       byte(h),
				SizeCode:   g.SizeCode,
				NumSectors: n,
				SectorSize: size,
				SMap:       append([]byte(nil), g.SMap...),
				SFlag:      make([]byte, n),
				Data:       data,
			}
			for i := range t.SFlag {
				t.SFlag[i] = imd.SFlagNormal
			}
			if g.CMap != nil {
				t.CMap = append([]byte(nil), g.CMap...)
				t.HFlag |= imd.HFlagCylMap
			}
			if g.HMap != nil {
				t.HMap = append([]byte(nil), g.HMap...)
				t.HFlag |= imd.HFlagHeadMap
			}

			if err := imd.WriteTrack(w, t, wopts); err != nil {
				return consumed, fmt.Errorf("writing C:%d H:%d: %w", c, h,
					err)
			}
		}
	}

	return consumed, nil
}
