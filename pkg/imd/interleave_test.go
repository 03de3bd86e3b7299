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
	"bytes"
	"testing"
)

func TestGenerateInterleavedMap(t *testing.T) {

	cases := []struct {
		n      int
		factor int
		base   byte
		want   []byte
	}{
		{9, 1, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{9, 2, 1, []byte{1, 6, 2, 7, 3, 8, 4, 9, 5}},
		{10, 2, 1, []byte{1, 6, 2, 7, 3, 8, 4, 9, 5, 10}},
		{5, 3, 0, []byte{0, 2, 4, 1, 3}},
		{1, 4, 7, []byte{7}},
		{4, 0, 1, []byte{1, 2, 3, 4}}, // factor below 1 acts as 1
	}

	for _, c := range cases {
		got := GenerateInterleavedMap(c.n, c.factor, c.base)
		if !bytes.Equal(got, c.want) {
			t.Errorf("n=%d factor=%d base=%d: got %v, want %v",
				c.n, c.factor, c.base, got, c.want)
		}
	}

	if GenerateInterleavedMap(0, 1, 1) != nil {
		t.Error("zero sectors must yield nil")
	}
}

func TestCalculateBestInterleave(t *testing.T) {

	for _, factor := range []int{1, 2, 3, 4} {
		smap := GenerateInterleavedMap(9, factor, 1)
		if got := CalculateBestInterleave(smap); got != factor {
			t.Errorf("factor %d not recovered from %v, got %d",
				factor, smap, got)
		}
	}

	// base ID other than 1
	smap := GenerateInterleavedMap(8, 2, 0)
	if got := CalculateBestInterleave(smap); got != 2 {
		t.Errorf("base 0 map: got %d, want 2", got)
	}

	// custom numbering no factor can produce
	if got := CalculateBestInterleave([]byte{1, 3, 2, 9, 4, 5, 6, 7, 8}); got != 0 {
		t.Errorf("custom map: got %d, want 0", got)
	}

	if got := CalculateBestInterleave([]byte{5}); got != 1 {
		t.Errorf("single sector: got %d, want 1", got)
	}
	if got := CalculateBestInterleave(nil); got != 0 {
		t.Errorf("empty map: got %d, want 0", got)
	}
}
