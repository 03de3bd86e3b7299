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
Package imd implements the ImageDisk (IMD) track container format: the
per-track byte grammar, sector payload compression, the file-level header
and comment framing, and interleave analysis.

An IMD file is an ASCII signature line terminated by '\n', a free-form
comment terminated by 0x1A, and then track records back to back until EOF.
*/
package imd

// Track encoding modes. The mode byte selects FM or MFM recording and the
// data rate. Modes 0-2 are FM, 3-5 are MFM; mode % 3 selects the rate
// within either group. This numbering is fixed by the format, not derived.
const (
	ModeFM500  = 0
	ModeFM300  = 1
	ModeFM250  = 2
	ModeMFM500 = 3
	ModeMFM300 = 4
	ModeMFM250 = 5

	NumModes = 6
)

// ModeRates maps a mode byte to its data rate in kbps.
var ModeRates = [NumModes]int{500, 300, 250, 500, 300, 250}

// ModeIsMFM reports whether mode selects MFM recording.
func ModeIsMFM(mode byte) bool {
	return mode >= 3
}

// RateOf returns the data rate in kbps for a mode, or 0 for an invalid mode.
func RateOf(mode byte) int {
	if int(mode) >= NumModes {
		return 0
	}
	return ModeRates[mode]
}

// Sector sizes, indexed by the size code byte: size = 128 << code.
var SectorSizes = [7]int{128, 256, 512, 1024, 2048, 4096, 8192}

const (
	// MaxSizeCode is the largest valid sector size code.
	MaxSizeCode = 6

	// MaxSectorSize bounds a single sector payload.
	MaxSectorSize = 8192

	// MaxSectorsPerTrack bounds the sector count of one track. The count is
	// a single byte on disk, so this also bounds every per-sector map.
	MaxSectorsPerTrack = 256

	// MaxTrackDataSize bounds the in-memory data buffer of one track.
	MaxTrackDataSize = MaxSectorsPerTrack * MaxSectorSize

	// FillByteDefault pads unavailable sectors when the caller does not
	// specify a fill value.
	FillByteDefault = 0xe5
)

// SectorSize resolves a size code to the sector size in bytes.
func SectorSize(code byte) (int, bool) {
	if code > MaxSizeCode {
		return 0, false
	}
	return SectorSizes[code], true
}

// Head byte layout: the top two bits flag the presence of the optional
// numbering maps, the low six bits carry the head number.
const (
	HFlagCylMap  = 0x80
	HFlagHeadMap = 0x40
	HeadMask     = 0x3f
)

// Sector flag codes. Only these nine values are legal on disk; the byte is
// an enumeration, not a bitfield.
const (
	SFlagUnavailable      = 0 // no data stored for this sector
	SFlagNormal           = 1
	SFlagCompressed       = 2
	SFlagNormalDAM        = 3 // deleted address mark
	SFlagCompressedDAM    = 4
	SFlagNormalErr        = 5 // read error when imaged
	SFlagCompressedErr    = 6
	SFlagNormalDAMErr     = 7
	SFlagCompressedDAMErr = 8

	maxSFlag = 8
)

// ValidFlag reports whether b is a legal sector flag byte.
func ValidFlag(b byte) bool {
	return b <= maxSFlag
}

// HasData reports whether a sector flag indicates stored payload bytes.
func HasData(b byte) bool {
	return b >= SFlagNormal && b <= maxSFlag
}

// IsCompressed reports whether a sector flag indicates the one-byte
// compressed payload form.
func IsCompressed(b byte) bool {
	return HasData(b) && b%2 == 0
}

// HasDAM reports whether a sector flag carries the deleted address mark.
func HasDAM(b byte) bool {
	switch b {
	case SFlagNormalDAM, SFlagCompressedDAM, SFlagNormalDAMErr, SFlagCompressedDAMErr:
		return true
	}
	return false
}

// HasErr reports whether a sector flag carries the data error mark.
func HasErr(b byte) bool {
	return b >= SFlagNormalErr && b <= maxSFlag
}

// composeFlag rebuilds a sector flag byte from its three components.
func composeFlag(compressed, dam, bad bool) byte {
	f := byte(SFlagNormal)
	if compressed {
		f = SFlagCompressed
	}
	if dam {
		f += 2
	}
	if bad {
		f += 4
	}
	return f
}
