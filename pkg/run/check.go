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

	"github.com/imdtools/imdkit/pkg/imd/check"
)

//
func NewCheck() *Check {

	c := &Check{}
	c.Runner = *NewRunner(
		"check [flags] {image}",
		"check an IMD image for structural problems",
		`
Use the check command to scan an IMD image and report structural and
sequencing problems, together with sector statistics.`,
		"", runnerHelpEpilogue, c.Run)

	c.AddBaseSettings()
	c.AddSetting(&c.MaxCyl, "max-cyl", "c", "", -1,
		"fail when a cylinder number exceeds this", false)
	c.AddSetting(&c.Head, "head", "s", "", -1,
		"fail when a track is not for this head", false)
	c.AddSetting(&c.MaxSectors, "max-sectors", "n", "", -1,
		"fail when a track has more sectors than this", false)
	c.AddSetting(&c.ErrorMask, "error-mask", "m", "",
		int(check.DefaultErrorMask),
		"bitmask of checks treated as errors", false)

	return c
}

//
type Check struct {
	Runner
	//
	MaxCyl     int
	Head       int
	MaxSectors int
	ErrorMask  int
}

//
func (c *Check) Run() error {

	c.ParseSettings()

	if len(c.Args) != 1 {
		return fmt.Errorf("check needs exactly one image file argument")
	}

	in, err := openInput(c.Args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	opts := check.NewOptions()
	opts.MaxCyl = c.MaxCyl
	opts.RequiredHead = c.Head
	opts.MaxSectors = c.MaxSectors
	opts.ErrorMask = uint32(c.ErrorMask)

	res, err := check.File(in, opts)
	if check.IsFatal(err) {
		return err
	}
	if err != nil {
		fmt.Printf("scan aborted: %v\n", err)
	}

	fmt.Println()
	fmt.Print(res.Summary())

	if !res.Passed(opts.ErrorMask) {
		return fmt.Errorf("image '%s' failed the check", c.Args[0])
	}

	fmt.Println("image passed the check")
	return nil
}
