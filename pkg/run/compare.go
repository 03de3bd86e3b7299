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

	"github.com/imdtools/imdkit/pkg/imd/compare"
)

//
func NewCompare() *Compare {

	c := &Compare{}
	c.Runner = *NewRunner(
		"compare [flags] {image1} {image2}",
		"compare two IMD images semantically",
		`
Use the compare command to diff two IMD images track by track, after
decompression. Differences that only affect the encoding, such as sector
compression or interleave, are reported separately from content
differences.`,
		"", runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddSetting(&c.IgnoreCompression, "ignore-compression", "C", "", false,
		"ignore differences in sector compression flags", false)
	c.AddSetting(&c.StrictCompression, "strict-compression", "S", "", false,
		"fail when compression flags differ, even if data matches", false)
	c.AddSetting(&c.Detail, "detail", "D", "", false,
		"list every difference found", false)

	return c
}

//
type Compare struct {
	Runner
	//
	IgnoreCompression bool
	StrictCompression bool
	Detail            bool
}

//
func (c *Compare) Run() error {

	c.ParseSettings()

	if len(c.Args) != 2 {
		return fmt.Errorf("compare needs exactly two image file arguments")
	}
	if c.IgnoreCompression && c.StrictCompression {
		return fmt.Errorf(
			"--ignore-compression and --strict-compression are mutually exclusive")
	}

	fill, err := c.fillByte()
	if err != nil {
		return err
	}

	in1, err := openInput(c.Args[0])
	if err != nil {
		return err
	}
	defer in1.Close()

	in2, err := openInput(c.Args[1])
	if err != nil {
		return err
	}
	defer in2.Close()

	res, err := compare.Images(in1, in2, &compare.Options{
		IgnoreCompression: c.IgnoreCompression,
		FillByte:          fill,
	})
	if err != nil {
		return err
	}

	if c.Detail {
		for _, f := range res.Findings {
			fmt.Println(f)
		}
	}

	outcome := res.Outcome()
	fmt.Printf("\ncompared %d tracks: images %s\n",
		res.TracksCompared, outcome)

	switch outcome {
	case compare.OutcomeMatch:
		return nil
	case compare.OutcomeCompressOnly:
		if c.StrictCompression {
			return fmt.Errorf("images differ in compression")
		}
		return nil
	case compare.OutcomeInterleaveOnly:
		return nil
	}

	return fmt.Errorf("images differ")
}
