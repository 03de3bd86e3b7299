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

package imd

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

/*
	Image is a fully materialized IMD file. The streaming front ends work
	track by track and never build one of these; interactive and service
	use cases need the whole file at hand.
*/
type Image struct {
	Header  *HeaderInfo
	Comment []byte
	Tracks  []*Track

	modified bool
}

// Load reads a complete image from r.
func Load(r io.Reader, fill byte) (*Image, error) {

	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	comment, err := ReadComment(r)
	if err != nil {
		return nil, err
	}

	img := &Image{Header: hdr, Comment: comment}

	for {
		t, err := ReadTrack(r, fill, true)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", len(img.Tracks), err)
		}
		if t == nil {
			break
		}
		img.Tracks = append(img.Tracks, t)
	}

	log.Debugf("loaded image: %d tracks", len(img.Tracks))
	return img, nil
}

/*
	Save writes the image to w. A nil opts preserves compression and order
	as loaded.
*/
func (img *Image) Save(w io.Writer, opts *WriteOptions) error {

	version := ""
	if img.Header != nil {
		version = img.Header.Version
	}
	if err := WriteHeader(w, version); err != nil {
		return err
	}
	if err := WriteComment(w, img.Comment); err != nil {
		return err
	}

	for ix, t := range img.Tracks {
		if err := WriteTrack(w, t, opts); err != nil {
			return fmt.Errorf("track %d: %w", ix, err)
		}
	}

	img.modified = false
	return nil
}

// TrackAt returns the track for the given cylinder and head, or nil.
func (img *Image) TrackAt(cyl, head byte) *Track {
	for _, t := range img.Tracks {
		if t.Cyl == cyl && t.Head == head {
			return t
		}
	}
	return nil
}

// IsModified reports whether the image changed since load or save.
func (img *Image) IsModified() bool {
	return img.modified
}

//
func (img *Image) SetModified(m bool) {
	img.modified = m
}

/*
	SetSectorByte changes one byte of sector data and marks the image
	modified. Track index, slot, and offset are all bounds checked.
*/
func (img *Image) SetSectorByte(track, slot, offset int, val byte) error {

	if track < 0 || track >= len(img.Tracks) {
		return fmt.Errorf("no track %d", track)
	}
	t := img.Tracks[track]

	data := t.SectorData(slot)
	if data == nil {
		return fmt.Errorf("no data for sector slot %d on track %d",
			slot, track)
	}
	if offset < 0 || offset >= len(data) {
		return fmt.Errorf("offset %d outside sector of %d bytes",
			offset, len(data))
	}

	if data[offset] != val {
		data[offset] = val
		img.modified = true
	}
	return nil
}
