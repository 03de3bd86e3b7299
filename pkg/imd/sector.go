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

import "fmt"

// CompressionMode selects how sector payloads are encoded on write.
type CompressionMode int

const (
	// CompressionAsRead keeps each sector in the form it was read in: a
	// sector is written compressed only if its original flag was compressed
	// and its data is still uniform.
	CompressionAsRead CompressionMode = iota

	// CompressionForceCompress writes every uniform sector in the one-byte
	// compressed form, regardless of how it was read.
	CompressionForceCompress

	// CompressionForceDecompress writes every sector in the full-size form.
	CompressionForceDecompress
)

//
func (m CompressionMode) String() string {
	switch m {
	case CompressionAsRead:
		return "as-read"
	case CompressionForceCompress:
		return "compress"
	case CompressionForceDecompress:
		return "decompress"
	}
	return fmt.Sprintf("CompressionMode(%d)", int(m))
}

// IsUniform reports whether every byte of data equals the first one, and
// returns that fill value. An empty slice is not uniform.
func IsUniform(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, false
	}
	v := data[0]
	for _, b := range data[1:] {
		if b != v {
			return 0, false
		}
	}
	return v, true
}

/*
	DecodeSector expands one stored sector payload into its full in-memory
	form of size bytes. For a compressed flag, payload must be the single
	fill byte; for an unavailable flag, payload must be empty and the result
	is size copies of fill; otherwise payload is copied verbatim and must be
	exactly size bytes long.
*/
func DecodeSector(flag byte, payload []byte, size int, fill byte) ([]byte, error) {

	if !ValidFlag(flag) {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidFlag, flag)
	}
	if size <= 0 || size > MaxSectorSize {
		return nil, fmt.Errorf("%w: sector size %d", ErrInvalidSizeCode, size)
	}

	out := make([]byte, size)

	switch {
	case !HasData(flag):
		if len(payload) != 0 {
			return nil, fmt.Errorf(
				"%w: %d payload bytes for unavailable sector",
				ErrPayloadLength, len(payload))
		}
		for ix := range out {
			out[ix] = fill
		}

	case IsCompressed(flag):
		if len(payload) != 1 {
			return nil, fmt.Errorf(
				"%w: %d payload bytes for compressed sector",
				ErrPayloadLength, len(payload))
		}
		for ix := range out {
			out[ix] = payload[0]
		}

	default:
		if len(payload) != size {
			return nil, fmt.Errorf(
				"%w: %d payload bytes for %d byte sector",
				ErrPayloadLength, len(payload), size)
		}
		copy(out, payload)
	}

	return out, nil
}

/*
	EncodeSector produces the on-disk form of one sector. origFlag is the
	flag under which the sector was read; its DAM and error marks are
	carried over, while the normal/compressed base type is chosen by mode.
	The returned payload aliases data in the full-size case.

	Sectors whose origFlag indicates no data stay unavailable and produce no
	payload.
*/
func EncodeSector(data []byte, origFlag byte, mode CompressionMode) (byte, []byte) {

	if !HasData(origFlag) {
		return SFlagUnavailable, nil
	}

	fill, uniform := IsUniform(data)

	var compressed bool
	switch mode {
	case CompressionForceCompress:
		compressed = uniform
	case CompressionForceDecompress:
		compressed = false
	default: // CompressionAsRead
		compressed = IsCompressed(origFlag) && uniform
	}

	flag := composeFlag(compressed, HasDAM(origFlag), HasErr(origFlag))
	if compressed {
		return flag, []byte{fill}
	}
	return flag, data
}
