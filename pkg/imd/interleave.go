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

// Interleave selectors for WriteOptions. Positive values are explicit
// factors.
const (
	InterleaveAsRead    = 0
	InterleaveBestGuess = -1
)

/*
	GenerateInterleavedMap builds a sector map of numSectors logical IDs
	starting at baseID, placed with the given interleave factor: each ID is
	placed factor physical slots after the previous one (wrapping), skipping
	slots that are already taken. Factor 1 yields sequential order. A factor
	below 1 is treated as 1.
*/
func GenerateInterleavedMap(numSectors, factor int, baseID byte) []byte {

	if numSectors <= 0 {
		return nil
	}
	if factor < 1 {
		factor = 1
	}

	smap := make([]byte, numSectors)
	used := make([]bool, numSectors)

	pos := 0
	for ix := 0; ix < numSectors; ix++ {
		for used[pos] {
			pos = (pos + 1) % numSectors
		}
		smap[pos] = baseID + byte(ix)
		used[pos] = true
		pos = (pos + factor) % numSectors
	}

	return smap
}

/*
	CalculateBestInterleave derives the interleave factor of a sector map by
	trying factors 1 through len(smap)-1 and checking which one regenerates
	the map, using the smallest ID present as the base. It returns the
	smallest matching factor, or 0 if no factor reproduces the map (custom
	numbering).
*/
func CalculateBestInterleave(smap []byte) int {

	n := len(smap)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	base := smap[0]
	for _, id := range smap[1:] {
		if id < base {
			base = id
		}
	}

	for factor := 1; factor < n; factor++ {
		if mapsEqual(smap, GenerateInterleavedMap(n, factor, base)) {
			return factor
		}
	}

	return 0
}

//
func mapsEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for ix := range a {
		if a[ix] != b[ix] {
			return false
		}
	}
	return true
}
