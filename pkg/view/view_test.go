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

package view

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/imdtools/imdkit/pkg/imd"
)

//
func writeTestImage(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	if err := imd.WriteHeader(&buf, "1.18"); err != nil {
		t.Fatal(err)
	}
	if err := imd.WriteComment(&buf, []byte("viewer test")); err != nil {
		t.Fatal(err)
	}
	for cyl := byte(0); cyl < 2; cyl++ {
		tr := &imd.Track{
			Mode:       imd.ModeMFM250,
			Cyl:        cyl,
			SizeCode:   1,
			NumSectors: 2,
			SectorSize: 256,
			SMap:       []byte{1, 2},
			SFlag:      []byte{imd.SFlagNormal, imd.SFlagUnavailable},
			Data:       make([]byte, 2*256),
		}
		if err := imd.WriteTrack(&buf, tr, nil); err != nil {
			t.Fatal(err)
		}
	}

	file := filepath.Join(t.TempDir(), "test.imd")
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestNew(t *testing.T) {

	v, err := New(writeTestImage(t), 0xe5)
	if err != nil {
		t.Fatalf("viewer rejected valid image: %v", err)
	}
	if len(v.img.Tracks) != 2 {
		t.Errorf("loaded %d tracks", len(v.img.Tracks))
	}

	if _, err := New(filepath.Join(t.TempDir(), "none.imd"), 0xe5); err == nil {
		t.Error("missing file accepted")
	}
}

func TestNavigation(t *testing.T) {

	v, err := New(writeTestImage(t), 0xe5)
	if err != nil {
		t.Fatal(err)
	}

	v.moveTrack(1)
	if v.track != 1 {
		t.Errorf("track %d after move", v.track)
	}
	v.moveTrack(5)
	if v.track != 1 {
		t.Errorf("track move not clamped: %d", v.track)
	}
	v.moveTrack(-9)
	if v.track != 0 {
		t.Errorf("track move not clamped low: %d", v.track)
	}

	v.moveSlot(1)
	if v.slot != 1 {
		t.Errorf("slot %d after move", v.slot)
	}
	v.moveOffset(300)
	if v.offset != 255 {
		t.Errorf("offset not clamped: %d", v.offset)
	}

	// changing track resets the cursor
	v.moveTrack(1)
	if v.slot != 0 || v.offset != 0 {
		t.Errorf("cursor not reset: slot %d, offset %d", v.slot, v.offset)
	}
}

func TestBeginEdit(t *testing.T) {

	v, err := New(writeTestImage(t), 0xe5)
	if err != nil {
		t.Fatal(err)
	}

	v.beginEdit()
	if !v.editing {
		t.Error("edit on data sector refused")
	}

	v.editing = false
	v.moveSlot(1) // unavailable sector
	v.beginEdit()
	if v.editing {
		t.Error("edit allowed on sector without data")
	}
}

func TestHexDigit(t *testing.T) {

	cases := []struct {
		r  rune
		v  byte
		ok bool
	}{
		{'0', 0, true},
		{'9', 9, true},
		{'a', 10, true},
		{'f', 15, true},
		{'A', 10, true},
		{'F', 15, true},
		{'g', 0, false},
		{' ', 0, false},
	}
	for _, c := range cases {
		v, ok := hexDigit(c.r)
		if ok != c.ok || v != c.v {
			t.Errorf("hexDigit(%q) = %d, %v", c.r, v, ok)
		}
	}
}

func TestFlagLetter(t *testing.T) {

	if flagLetter(imd.SFlagUnavailable) == flagLetter(imd.SFlagNormal) {
		t.Error("unavailable and normal sectors render alike")
	}
	if flagLetter(imd.SFlagNormalErr) == flagLetter(imd.SFlagNormal) {
		t.Error("bad and normal sectors render alike")
	}
}
