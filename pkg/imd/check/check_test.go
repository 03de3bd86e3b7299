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

package check

import (
	"bytes"
	"testing"

	"github.com/imdtools/imdkit/pkg/imd"
)

// spec describes one track of a synthetic test image.
type spec struct {
	cyl, head byte
	smap      []byte
	flags     []byte
}

// buildImage assembles an IMD byte stream of 256-byte MFM sectors.
func buildImage(t *testing.T, comment string, tracks []spec) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := imd.WriteHeader(&buf, "1.18"); err != nil {
		t.Fatal(err)
	}
	if err := imd.WriteComment(&buf, []byte(comment)); err != nil {
		t.Fatal(err)
	}

	for _, s := range tracks {
		flags := s.flags
		if flags == nil {
			flags = bytes.Repeat([]byte{imd.SFlagNormal}, len(s.smap))
		}
		tr := &imd.Track{
			Mode:       imd.ModeMFM250,
			Cyl:        s.cyl,
			Head:       s.head,
			SizeCode:   1,
			NumSectors: len(s.smap),
			SectorSize: 256,
			SMap:       s.smap,
			SFlag:      flags,
			Data:       make([]byte, len(s.smap)*256),
		}
		if err := imd.WriteTrack(&buf, tr, nil); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func seq(n int) []byte {
	out := make([]byte, n)
	for ix := range out {
		out[ix] = byte(ix + 1)
	}
	return out
}

func TestCheckCleanImage(t *testing.T) {

	raw := buildImage(t, "clean", []spec{
		{0, 0, seq(9), nil},
		{0, 1, seq(9), nil},
		{1, 0, seq(9), nil},
		{1, 1, seq(9), nil},
	})

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if res.CheckFailuresMask != 0 {
		t.Errorf("clean image failed checks: %s", res.Summary())
	}
	if !res.Passed(DefaultErrorMask) {
		t.Error("clean image did not pass")
	}
	if res.TrackReadCount != 4 {
		t.Errorf("scanned %d tracks, want 4", res.TrackReadCount)
	}
	if res.MaxHeadSeen != 1 || res.MaxCylSide0 != 1 || res.MaxCylSide1 != 1 {
		t.Errorf("geometry: head %d, cyls %d/%d",
			res.MaxHeadSeen, res.MaxCylSide0, res.MaxCylSide1)
	}
	if res.TotalSectors != 36 {
		t.Errorf("counted %d sectors, want 36", res.TotalSectors)
	}
	if res.DetectedInterleave != 1 {
		t.Errorf("detected interleave %d, want 1", res.DetectedInterleave)
	}
}

func TestCheckCylinderDecrease(t *testing.T) {

	raw := buildImage(t, "", []spec{
		{1, 0, seq(9), nil},
		{0, 0, seq(9), nil},
	})

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.CheckFailuresMask&CheckSeqCylDecrease == 0 {
		t.Error("cylinder decrease not flagged")
	}
	// a sequencing warning is not an error under the default mask
	if !res.Passed(DefaultErrorMask) {
		t.Error("sequencing warning treated as error")
	}
	if res.Passed(DefaultErrorMask | CheckSeqCylDecrease) {
		t.Error("widened mask did not catch the warning")
	}
}

func TestCheckHeadOrder(t *testing.T) {

	raw := buildImage(t, "", []spec{
		{0, 1, seq(9), nil},
		{0, 0, seq(9), nil},
	})

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.CheckFailuresMask&CheckSeqHeadOrder == 0 {
		t.Error("head order regression not flagged")
	}
}

func TestCheckDuplicateSectorID(t *testing.T) {

	raw := buildImage(t, "", []spec{
		{0, 0, []byte{1, 2, 2, 4}, nil},
	})

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.CheckFailuresMask&CheckDupeSectorID == 0 {
		t.Error("duplicate sector ID not flagged")
	}
	if res.Passed(DefaultErrorMask) {
		t.Error("duplicate ID must be an error by default")
	}
}

func TestCheckSectorStatistics(t *testing.T) {

	raw := buildImage(t, "", []spec{
		{0, 0, seq(4), []byte{
			imd.SFlagUnavailable,
			imd.SFlagCompressed,
			imd.SFlagNormalDAM,
			imd.SFlagNormalErr,
		}},
	})

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatal(err)
	}

	if res.UnavailableSectors != 1 || res.CompressedSectors != 1 ||
		res.DeletedSectors != 1 || res.DataErrorSectors != 1 {
		t.Errorf("stats: %d unavailable, %d compressed, %d deleted, %d bad",
			res.UnavailableSectors, res.CompressedSectors,
			res.DeletedSectors, res.DataErrorSectors)
	}
	if res.CheckFailuresMask&CheckDataErrFlag == 0 {
		t.Error("data error flag not recorded")
	}
	if res.CheckFailuresMask&CheckDeletedDAMFlag == 0 {
		t.Error("deleted DAM flag not recorded")
	}
	// both are warnings under the default mask
	if !res.Passed(DefaultErrorMask) {
		t.Error("flag statistics treated as errors")
	}
}

func TestCheckDiffMaxCyl(t *testing.T) {

	raw := buildImage(t, "", []spec{
		{0, 0, seq(9), nil},
		{0, 1, seq(9), nil},
		{1, 0, seq(9), nil},
	})

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.CheckFailuresMask&CheckDiffMaxCyl == 0 {
		t.Error("differing max cylinders not flagged")
	}
}

func TestCheckConstraints(t *testing.T) {

	raw := buildImage(t, "", []spec{
		{0, 0, seq(9), nil},
		{1, 1, seq(10), nil},
	})

	opts := NewOptions()
	opts.MaxCyl = 0
	opts.RequiredHead = 0
	opts.MaxSectors = 9

	res, err := File(bytes.NewReader(raw), opts)
	if err != nil {
		t.Fatal(err)
	}

	for _, bit := range []uint32{CheckConCyl, CheckConHead, CheckConSectors} {
		if res.CheckFailuresMask&bit == 0 {
			t.Errorf("constraint not flagged: %s", Description(bit))
		}
	}
	if res.Passed(DefaultErrorMask) {
		t.Error("constraint violations must be errors by default")
	}
}

func TestCheckInterleaveConsensus(t *testing.T) {

	il2 := imd.GenerateInterleavedMap(9, 2, 1)

	raw := buildImage(t, "", []spec{
		{0, 0, il2, nil},
		{1, 0, il2, nil},
	})
	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.DetectedInterleave != 2 {
		t.Errorf("detected interleave %d, want 2", res.DetectedInterleave)
	}

	// disagreeing tracks pin the result to unknown
	raw = buildImage(t, "", []spec{
		{0, 0, il2, nil},
		{1, 0, seq(9), nil},
	})
	if res, err = File(bytes.NewReader(raw), nil); err != nil {
		t.Fatal(err)
	}
	if res.DetectedInterleave != 0 {
		t.Errorf("disagreeing tracks: interleave %d, want 0",
			res.DetectedInterleave)
	}
}

func TestCheckTruncatedComment(t *testing.T) {

	raw := []byte("IMD 1.18\nno terminator")

	res, err := File(bytes.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("missing comment terminator must not abort: %v", err)
	}
	if res.CheckFailuresMask&CheckCommentTerm == 0 {
		t.Error("missing comment terminator not flagged")
	}
	if res.Passed(DefaultErrorMask) {
		t.Error("missing terminator must be an error by default")
	}
}

func TestCheckBadHeader(t *testing.T) {

	res, err := File(bytes.NewReader([]byte("garbage\n")), nil)
	if err == nil {
		t.Fatal("bad header accepted")
	}
	if res.CheckFailuresMask&CheckHeader == 0 {
		t.Error("header failure not flagged")
	}
	if IsFatal(err) {
		t.Error("format error classified as fatal")
	}
}

func TestCheckTruncatedTrack(t *testing.T) {

	raw := buildImage(t, "", []spec{{0, 0, seq(9), nil}})
	raw = raw[:len(raw)-200]

	res, err := File(bytes.NewReader(raw), nil)
	if err == nil {
		t.Fatal("truncated track accepted")
	}
	if res.CheckFailuresMask&CheckTrackRead == 0 {
		t.Error("track read failure not flagged")
	}
}
