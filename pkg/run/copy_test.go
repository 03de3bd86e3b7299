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

package run

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/imdtools/imdkit/pkg/imd"
)

func TestParseRange(t *testing.T) {

	cases := []struct {
		in     string
		lo, hi int
		ok     bool
	}{
		{"3", 3, 3, true},
		{"0-39", 0, 39, true},
		{"5-5", 5, 5, true},
		{"5-3", 0, 0, false},
		{"-1", 0, 0, false},
		{"x", 0, 0, false},
	}

	for _, c := range cases {
		lo, hi, err := parseRange(c.in)
		if c.ok != (err == nil) {
			t.Errorf("%q: err %v", c.in, err)
			continue
		}
		if c.ok && (lo != c.lo || hi != c.hi) {
			t.Errorf("%q: got %d-%d, want %d-%d", c.in, lo, hi, c.lo, c.hi)
		}
	}
}

func TestExclusions(t *testing.T) {

	c := &Copy{Exclude: "1, 3-4", Exclude0: "7", Exclude1: "8"}

	ex, err := c.exclusions()
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	both := byte(sideMask0 | sideMask1)
	want := map[int]byte{
		1: both, 3: both, 4: both,
		7: sideMask0,
		8: sideMask1,
	}
	if len(ex) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(ex), len(want), ex)
	}
	for cyl, mask := range want {
		if ex[cyl] != mask {
			t.Errorf("cylinder %d: mask %02x, want %02x", cyl, ex[cyl], mask)
		}
	}

	c = &Copy{Exclude: "1-"}
	if _, err := c.exclusions(); err == nil {
		t.Error("open-ended range accepted")
	}
}

func TestTrackBefore(t *testing.T) {

	a := &imd.Track{Cyl: 1, Head: 0}
	b := &imd.Track{Cyl: 1, Head: 1}
	c := &imd.Track{Cyl: 2, Head: 0}

	if !trackBefore(a, b) || !trackBefore(b, c) || !trackBefore(a, c) {
		t.Error("track ordering broken")
	}
	if trackBefore(b, a) || trackBefore(c, b) {
		t.Error("reverse ordering accepted")
	}
	if trackBefore(a, a) {
		t.Error("track ordered before itself")
	}
}

func TestCopyWriteOptions(t *testing.T) {

	c := &Copy{Compress: true, Interleave: "best", Translate: "300=250"}
	opts, err := c.writeOptions()
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	if opts.Compression != imd.CompressionForceCompress {
		t.Errorf("compression %s", opts.Compression)
	}
	if opts.Interleave != imd.InterleaveBestGuess {
		t.Errorf("interleave %d", opts.Interleave)
	}
	if opts.ModeMap == nil || opts.ModeMap[imd.ModeMFM300] != imd.ModeMFM250 {
		t.Error("rate translation not recorded")
	}

	// binary output without explicit interleave defaults to sequential
	c = &Copy{Binary: true}
	if opts, err = c.writeOptions(); err != nil || opts.Interleave != 1 {
		t.Errorf("binary default interleave: %d, err %v", opts.Interleave, err)
	}

	for _, bad := range []Copy{
		{Interleave: "zero"},
		{Interleave: "0"},
		{Translate: "300250"},
		{Translate: "300=abc"},
		{Translate: "100=250"}, // no mode runs at 100 kbps
	} {
		b := bad
		if _, err := b.writeOptions(); err == nil {
			t.Errorf("options %+v accepted", bad)
		}
	}
}

func TestProcessCommentAppend(t *testing.T) {

	dir := t.TempDir()
	extra := filepath.Join(dir, "extra.txt")
	if err := os.WriteFile(extra, []byte("appended line"), 0644); err != nil {
		t.Fatal(err)
	}

	// comment without trailing newline gets a CRLF joint
	c := &Copy{AppendComment: extra}
	out, err := c.processComment([]byte("original"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "original\r\nappended line" {
		t.Errorf("appended comment: %q", out)
	}

	// trailing newline is kept as is
	out, err = c.processComment([]byte("original\n"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "original\nappended line" {
		t.Errorf("appended comment: %q", out)
	}
}

func TestProcessCommentReplaceExtract(t *testing.T) {

	dir := t.TempDir()
	repl := filepath.Join(dir, "repl.txt")
	if err := os.WriteFile(repl, []byte("replacement"), 0644); err != nil {
		t.Fatal(err)
	}
	extracted := filepath.Join(dir, "out.txt")

	c := &Copy{ReplaceComment: repl, ExtractComment: extracted}
	out, err := c.processComment([]byte("original"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "replacement" {
		t.Errorf("replaced comment: %q", out)
	}

	// extraction sees the original, not the replacement
	b, err := os.ReadFile(extracted)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "original" {
		t.Errorf("extracted comment: %q", b)
	}
}

func TestCopyProcessTracksMerge(t *testing.T) {

	primary := buildTestImage(t, []byte{0, 1, 3}, 0)
	merge := buildTestImage(t, []byte{1, 2}, 0x80)

	c := &Copy{}
	var out bytes.Buffer

	pr := bytes.NewReader(primary)
	mr := bytes.NewReader(merge)
	skipFraming(t, pr)
	skipFraming(t, mr)

	n, err := c.processTracks(pr, mr, &out, nil, nil, 0xe5)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("processed %d tracks, want 4", n)
	}

	cyls := readCyls(t, out.Bytes())
	want := []byte{0, 1, 2, 3}
	if !bytes.Equal(cyls, want) {
		t.Errorf("merged cylinders %v, want %v", cyls, want)
	}

	// cylinder 1 exists in both images; the payload seed shows whether the
	// primary copy won
	r := bytes.NewReader(out.Bytes())
	for {
		tr, err := imd.ReadTrack(r, 0xe5, true)
		if err != nil || tr == nil {
			break
		}
		var wantSeed byte
		if tr.Cyl == 2 {
			wantSeed = 0x80 // only present in the merge image
		}
		if d := tr.SectorData(0); d[0] != tr.Cyl+wantSeed {
			t.Errorf("cylinder %d payload %02x, want %02x",
				tr.Cyl, d[0], tr.Cyl+wantSeed)
		}
	}
}

func TestCopyProcessTracksExclude(t *testing.T) {

	primary := buildTestImage(t, []byte{0, 1, 2}, 0)

	c := &Copy{}
	var out bytes.Buffer
	pr := bytes.NewReader(primary)
	skipFraming(t, pr)

	excluded := map[int]byte{1: sideMask0}
	n, err := c.processTracks(pr, nil, &out, nil, excluded, 0xe5)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("processed %d tracks, want 2", n)
	}
	if cyls := readCyls(t, out.Bytes()); !bytes.Equal(cyls, []byte{0, 2}) {
		t.Errorf("cylinders after exclusion: %v", cyls)
	}
}

func TestCopyProcessTracksAddMissing(t *testing.T) {

	primary := buildTestImage(t, []byte{0}, 0)

	c := &Copy{AddMissing: 5}
	var out bytes.Buffer
	pr := bytes.NewReader(primary)
	skipFraming(t, pr)

	if _, err := c.processTracks(pr, nil, &out, nil, nil, 0xe5); err != nil {
		t.Fatal(err)
	}

	tr, err := imd.ReadTrack(bytes.NewReader(out.Bytes()), 0xe5, true)
	if err != nil {
		t.Fatal(err)
	}
	if tr.NumSectors != 5 {
		t.Errorf("padded to %d sectors, want 5", tr.NumSectors)
	}
}

// buildTestImage writes a one-sector track per cylinder, with seed plus
// cylinder number as payload.
func buildTestImage(t *testing.T, cyls []byte, seed byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := imd.WriteHeader(&buf, "1.18"); err != nil {
		t.Fatal(err)
	}
	if err := imd.WriteComment(&buf, nil); err != nil {
		t.Fatal(err)
	}

	for _, cyl := range cyls {
		data := bytes.Repeat([]byte{cyl + seed}, 256)
		tr := &imd.Track{
			Mode:       imd.ModeMFM250,
			Cyl:        cyl,
			SizeCode:   1,
			NumSectors: 1,
			SectorSize: 256,
			SMap:       []byte{1},
			SFlag:      []byte{imd.SFlagNormal},
			Data:       data,
		}
		if err := imd.WriteTrack(&buf, tr, nil); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

//
func skipFraming(t *testing.T, r *bytes.Reader) {
	t.Helper()
	if _, err := imd.ReadHeader(r); err != nil {
		t.Fatal(err)
	}
	if err := imd.SkipComment(r); err != nil {
		t.Fatal(err)
	}
}

// readCyls decodes a bare track stream and returns the cylinder numbers.
func readCyls(t *testing.T, raw []byte) []byte {
	t.Helper()

	var out []byte
	r := bytes.NewReader(raw)
	for {
		tr, err := imd.ReadTrack(r, 0xe5, true)
		if err != nil {
			t.Fatal(err)
		}
		if tr == nil {
			return out
		}
		out = append(out, tr.Cyl)
	}
}
