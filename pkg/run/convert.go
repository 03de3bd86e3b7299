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
	"os"
	"strconv"
	"strings"

	"github.com/imdtools/imdkit/pkg/imd"
	"github.com/imdtools/imdkit/pkg/imd/convert"
)

//
func NewConvert() *Convert {

	c := &Convert{}
	c.Runner = *NewRunner(
		"convert [flags] {binary} {output}",
		"convert a raw sector dump into an IMD image",
		`
Use the convert command to turn a flat binary file of sector data into an
IMD image. The disk layout must be given explicitly: recording mode, number
of cylinders and sides, sector size and the sector numbering map. Input
shorter than the layout is padded with the fill byte.`,
		"", runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddSetting(&c.Mode, "mode", "M", "", nil,
		"recording mode, 0-5 as defined by the IMD format", true)
	c.AddSetting(&c.Cylinders, "cylinders", "c", "", nil,
		"number of cylinders", true)
	c.AddSetting(&c.Sides, "sides", "s", "", 1,
		"number of sides, 1 or 2", false)
	c.AddSetting(&c.SizeCode, "size", "z", "", nil,
		"sector size code, 0-6 for 128-8192 bytes", true)
	c.AddSetting(&c.SectorMap, "sector-map", "S", "", nil,
		"sector IDs per track, e.g. 1-9 or 1,4,7,2,5,8,3,6,9", true)
	c.AddSetting(&c.CommentFile, "comment", "", "", nil,
		"file with the comment block for the new image", false)
	c.AddSetting(&c.Expand, "expand", "E", "", false,
		"store all sectors uncompressed", false)
	c.AddSetting(&c.Yes, "yes", "y", "", false,
		"overwrite the output file without asking", false)

	return c
}

//
type Convert struct {
	Runner
	//
	Mode        int
	Cylinders   int
	Sides       int
	SizeCode    int
	SectorMap   string
	CommentFile string
	Expand      bool
	Yes         bool
}

//
func (c *Convert) Run() error {

	c.ParseSettings()

	if len(c.Args) != 2 {
		return fmt.Errorf("convert needs a binary input and an output file")
	}

	smap, err := parseSectorMap(c.SectorMap)
	if err != nil {
		return err
	}

	geo := &convert.Geometry{
		Mode:     byte(c.Mode),
		SizeCode: byte(c.SizeCode),
		SMap:     smap,
	}
	layout := &convert.Layout{
		Cylinders: c.Cylinders,
		Sides:     c.Sides,
		Defaults:  [2]*convert.Geometry{geo, geo},
	}
	if err := layout.Validate(); err != nil {
		return err
	}

	opts := convert.NewOptions()
	fill, err := c.fillByte()
	if err != nil {
		return err
	}
	opts.FillByte = fill
	if c.Expand {
		opts.Compression = imd.CompressionForceDecompress
	}
	if c.CommentFile != "" {
		b, err := os.ReadFile(c.CommentFile)
		if err != nil {
			return fmt.Errorf("reading comment: %w", err)
		}
		opts.Comment = b
	}

	in, err := openInput(c.Args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := createOutput(c.Args[1], c.Yes)
	if err != nil {
		return err
	}
	defer out.Close()

	read, err := convert.BinToIMD(in, out, layout, opts)
	if err != nil {
		return err
	}

	fmt.Printf("\nconverted %d bytes into %d tracks\n",
		read, c.Cylinders*c.Sides)
	return nil
}

/*
	parseSectorMap parses a sector numbering map, either as an inclusive
	ID range like 1-9, or as an explicit comma-separated ID list.
*/
func parseSectorMap(s string) ([]byte, error) {

	if strings.Contains(s, ",") || !strings.Contains(s, "-") {
		return parseByteList(s)
	}

	parts := strings.SplitN(s, "-", 2)
	lo, err1 := strconv.ParseUint(parts[0], 0, 8)
	hi, err2 := strconv.ParseUint(parts[1], 0, 8)
	if err1 != nil || err2 != nil || hi < lo {
		return nil, fmt.Errorf("invalid sector map: %s", s)
	}

	ret := make([]byte, 0, hi-lo+1)
	for id := lo; id <= hi; id++ {
		ret = append(ret, byte(id))
	}
	return ret, nil
}
