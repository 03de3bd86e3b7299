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
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/imd"
)

//
const (
	sideMask0 = 0x01
	sideMask1 = 0x02
)

//
func NewCopy() *Copy {

	c := &Copy{}
	c.Runner = *NewRunner(
		"copy [flags] {image} {output}",
		"copy an IMD image, with optional transformations",
		`
Use the copy command to rewrite an IMD image. On the way, sectors can be
recompressed or expanded, tracks excluded, missing sectors padded in, data
rates translated, the sector order re-interleaved, and the comment block
extracted, replaced or appended to. A second image can be merged in; where
both images carry the same track, the primary wins. With --binary, raw
sector data is written instead of an IMD file.`,
		"", runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddSetting(&c.Merge, "merge", "m", "", nil,
		"merge tracks from this image, primary wins on conflict", false)
	c.AddSetting(&c.Binary, "binary", "B", "", false,
		"write raw sector data instead of an IMD file", false)
	c.AddSetting(&c.Compress, "compress", "C", "", false,
		"compress uniform sectors on output", false)
	c.AddSetting(&c.Expand, "expand", "E", "", false,
		"expand compressed sectors on output", false)
	c.AddSetting(&c.NonBad, "force-non-bad", "", "", false,
		"clear the data error mark on all sectors", false)
	c.AddSetting(&c.NonDeleted, "force-non-deleted", "", "", false,
		"clear the deleted address mark on all sectors", false)
	c.AddSetting(&c.Interleave, "interleave", "I", "", nil,
		"re-interleave output: a factor, or 'best'", false)
	c.AddSetting(&c.AddMissing, "add-missing", "", "", 0,
		"pad each track with unavailable sectors up to this count", false)
	c.AddSetting(&c.Translate, "translate", "T", "", nil,
		"translate data rate, e.g. 300=250", false)
	c.AddSetting(&c.Exclude, "exclude", "X", "", nil,
		"exclude cylinders on both sides, e.g. 0,2-5", false)
	c.AddSetting(&c.Exclude0, "exclude-side0", "", "", nil,
		"exclude cylinders on side 0 only", false)
	c.AddSetting(&c.Exclude1, "exclude-side1", "", "", nil,
		"exclude cylinders on side 1 only", false)
	c.AddSetting(&c.ExtractComment, "extract-comment", "", "", nil,
		"write the comment block to this file", false)
	c.AddSetting(&c.ReplaceComment, "replace-comment", "", "", nil,
		"replace the comment block with this file's content", false)
	c.AddSetting(&c.AppendComment, "append-comment", "", "", nil,
		"append this file's content to the comment block", false)
	c.AddSetting(&c.Yes, "yes", "y", "", false,
		"overwrite the output file without asking", false)

	return c
}

//
type Copy struct {
	Runner
	//
	Merge          string
	Binary         bool
	Compress       bool
	Expand         bool
	NonBad         bool
	NonDeleted     bool
	Interleave     string
	AddMissing     int
	Translate      string
	Exclude        string
	Exclude0       string
	Exclude1       string
	ExtractComment string
	ReplaceComment string
	AppendComment  string
	Yes            bool
}

//
func (c *Copy) Run() error {

	c.ParseSettings()

	if len(c.Args) < 1 || len(c.Args) > 2 {
		return fmt.Errorf("copy needs an input image and optionally an output")
	}
	if c.Compress && c.Expand {
		return fmt.Errorf("--compress and --expand are mutually exclusive")
	}
	if len(c.Args) < 2 && c.ExtractComment == "" {
		return fmt.Errorf("nothing to do without an output file")
	}

	fill, err := c.fillByte()
	if err != nil {
		return err
	}

	opts, err := c.writeOptions()
	if err != nil {
		return err
	}

	excluded, err := c.exclusions()
	if err != nil {
		return err
	}

	in, err := openInput(c.Args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	var merge io.ReadCloser
	if c.Merge != "" {
		if merge, err = openInput(c.Merge); err != nil {
			return err
		}
		defer merge.Close()
		if _, err := imd.ReadHeader(merge); err != nil {
			return fmt.Errorf("merge image: %w", err)
		}
		if err := imd.SkipComment(merge); err != nil {
			return fmt.Errorf("merge image: %w", err)
		}
	}

	hdr, err := imd.ReadHeader(in)
	if err != nil {
		return err
	}
	log.Debugf("primary image header: %s", hdr.Line)

	comment, err := imd.ReadComment(in)
	if err != nil {
		return err
	}

	if comment, err = c.processComment(comment); err != nil {
		return err
	}

	var out io.WriteCloser
	if len(c.Args) == 2 {
		if out, err = createOutput(c.Args[1], c.Yes); err != nil {
			return err
		}
		defer out.Close()

		if !c.Binary {
			if err := imd.WriteHeader(out, hdr.Version); err != nil {
				return err
			}
			if err := imd.WriteComment(out, comment); err != nil {
				return err
			}
		}
	}

	tracks, err := c.processTracks(in, merge, out, opts, excluded, fill)
	if err != nil {
		return err
	}

	fmt.Printf("\nprocessed %d tracks\n", tracks)
	return nil
}

/*
	processTracks runs the two-cursor merge over the primary and optional
	merge stream, applying exclusion and padding, and writes the surviving
	tracks to out when set. Both inputs must be ordered by cylinder and
	head; on a conflict the primary track wins.
*/
func (c *Copy) processTracks(in, merge io.Reader, out io.Writer,
	opts *imd.WriteOptions, excluded map[int]byte, fill byte) (int, error) {

	var primary, secondary *imd.Track
	primaryEOF, mergeEOF := false, merge == nil
	tracks := 0

	for {
		var err error

		if !primaryEOF && primary == nil {
			if primary, err = imd.ReadTrack(in, fill, true); err != nil {
				return tracks, fmt.Errorf("primary image: %w", err)
			}
			primaryEOF = primary == nil
		}
		if !mergeEOF && secondary == nil {
			if secondary, err = imd.ReadTrack(merge, fill, true); err != nil {
				return tracks, fmt.Errorf("merge image: %w", err)
			}
			mergeEOF = secondary == nil
		}

		var t *imd.Track
		switch {
		case primary != nil && secondary != nil:
			switch {
			case trackBefore(primary, secondary):
				t, primary = primary, nil
			case trackBefore(secondary, primary):
				t, secondary = secondary, nil
			default:
				// same position in both, primary wins
				log.Debugf("merging C:%d H:%d, using primary",
					primary.Cyl, primary.Head)
				t, primary, secondary = primary, nil, nil
			}
		case primary != nil:
			t, primary = primary, nil
		case secondary != nil:
			t, secondary = secondary, nil
		default:
			return tracks, nil
		}

		if mask, ok := excluded[int(t.Cyl)]; ok {
			bit := byte(sideMask0)
			if t.Head&1 == 1 {
				bit = sideMask1
			}
			if mask&bit != 0 {
				log.Debugf("excluding C:%d H:%d", t.Cyl, t.Head)
				continue
			}
		}

		if c.AddMissing > t.NumSectors {
			if err := t.PadSectors(c.AddMissing, fill); err != nil {
				return tracks, fmt.Errorf("padding C:%d H:%d: %w",
					t.Cyl, t.Head, err)
			}
		}

		tracks++

		if out == nil {
			continue
		}
		if c.Binary {
			err = imd.WriteTrackBin(out, t, opts)
		} else {
			err = imd.WriteTrack(out, t, opts)
		}
		if err != nil {
			return tracks, fmt.Errorf("writing C:%d H:%d: %w",
				t.Cyl, t.Head, err)
		}
	}
}

// trackBefore orders tracks by cylinder, then head.
func trackBefore(a, b *imd.Track) bool {
	return a.Cyl < b.Cyl || (a.Cyl == b.Cyl && a.Head < b.Head)
}

//
func (c *Copy) writeOptions() (*imd.WriteOptions, error) {

	opts := &imd.WriteOptions{
		Compression:     imd.CompressionAsRead,
		ForceNonBad:     c.NonBad,
		ForceNonDeleted: c.NonDeleted,
	}
	if c.Compress {
		opts.Compression = imd.CompressionForceCompress
	}
	if c.Expand {
		opts.Compression = imd.CompressionForceDecompress
	}

	switch c.Interleave {
	case "":
		if c.Binary {
			opts.Interleave = 1
		}
	case "best":
		opts.Interleave = imd.InterleaveBestGuess
	default:
		f, err := strconv.Atoi(c.Interleave)
		if err != nil || f < 1 {
			return nil, fmt.Errorf("invalid interleave factor: %s",
				c.Interleave)
		}
		opts.Interleave = f
	}

	if c.Translate != "" {
		parts := strings.SplitN(c.Translate, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf(
				"invalid rate translation: %s, use e.g. 300=250", c.Translate)
		}
		from, err1 := strconv.Atoi(parts[0])
		to, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("invalid rate translation: %s", c.Translate)
		}
		if err := opts.TranslateRate(from, to); err != nil {
			return nil, err
		}
	}

	return opts, nil
}

// exclusions merges the three exclusion lists into a cylinder to side
// mask lookup.
func (c *Copy) exclusions() (map[int]byte, error) {

	ret := map[int]byte{}

	for _, e := range []struct {
		spec string
		mask byte
	}{
		{c.Exclude, sideMask0 | sideMask1},
		{c.Exclude0, sideMask0},
		{c.Exclude1, sideMask1},
	} {
		if e.spec == "" {
			continue
		}
		for _, part := range strings.Split(e.spec, ",") {
			lo, hi, err := parseRange(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			for cyl := lo; cyl <= hi; cyl++ {
				ret[cyl] |= e.mask
			}
		}
	}

	return ret, nil
}

//
func parseRange(s string) (int, int, error) {

	parts := strings.SplitN(s, "-", 2)

	lo, err := strconv.Atoi(parts[0])
	if err != nil || lo < 0 {
		return 0, 0, fmt.Errorf("invalid cylinder range: %s", s)
	}
	hi := lo
	if len(parts) == 2 {
		if hi, err = strconv.Atoi(parts[1]); err != nil || hi < lo {
			return 0, 0, fmt.Errorf("invalid cylinder range: %s", s)
		}
	}
	return lo, hi, nil
}

/*
	processComment applies the comment options: extraction happens first
	and sees the original, replace and append modify what goes to the
	output.
*/
func (c *Copy) processComment(comment []byte) ([]byte, error) {

	if c.ExtractComment != "" {
		if err := os.WriteFile(c.ExtractComment, comment, 0644); err != nil {
			return nil, fmt.Errorf("extracting comment: %w", err)
		}
		fmt.Printf("comment extracted to '%s'\n", c.ExtractComment)
	}

	if c.ReplaceComment != "" {
		b, err := os.ReadFile(c.ReplaceComment)
		if err != nil {
			return nil, fmt.Errorf("replacing comment: %w", err)
		}
		return b, nil
	}

	if c.AppendComment != "" {
		b, err := os.ReadFile(c.AppendComment)
		if err != nil {
			return nil, fmt.Errorf("appending comment: %w", err)
		}
		if len(comment) > 0 && comment[len(comment)-1] != '\n' {
			comment = append(comment, '\r', '\n')
		}
		comment = append(comment, b...)
	}

	return comment, nil
}
