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
	"strings"

	"github.com/imdtools/imdkit/pkg/imd/analyze"
)

//
func NewAnalyze() *Analyze {

	a := &Analyze{}
	a.Runner = *NewRunner(
		"analyze {image}",
		"recommend drive types for recreating an IMD image",
		`
Use the analyze command to scan the track headers of an IMD image and get
the physical geometry it needs, plus the drive types and write options that
can recreate the disk.`,
		"", runnerHelpEpilogue, a.Run)

	a.AddBaseSettings()

	return a
}

//
type Analyze struct {
	Runner
}

//
func (a *Analyze) Run() error {

	a.ParseSettings()

	if len(a.Args) != 1 {
		return fmt.Errorf("analyze needs exactly one image file argument")
	}

	in, err := openInput(a.Args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	res, err := analyze.File(in)
	if err != nil {
		return err
	}

	if res.TrackCount == 0 {
		fmt.Println("\nimage contains no tracks")
		return nil
	}

	rates := make([]string, 0, 3)
	for _, r := range res.Rates() {
		rates = append(rates, fmt.Sprintf("%d kbps", r))
	}

	fmt.Printf("\nrequired cylinders:  %d (0-%d)\n", res.Cylinders(), res.MaxCyl)
	fmt.Printf("required heads:      %d\n", res.Heads())
	fmt.Printf("data rates used:     %s\n", strings.Join(rates, ", "))
	fmt.Printf("est. max track size: %d bytes\n", res.MaxTrackBytes)

	recs, err := res.Recommendations()
	if err != nil {
		return err
	}

	fmt.Println("\npossible drive types:")
	notes := make([]string, 0, 3)
	for _, r := range recs {
		fmt.Printf("  %s\n", r)
		for _, n := range r.Notes {
			if !containsString(notes, n) {
				notes = append(notes, n)
			}
		}
	}

	if len(notes) > 0 {
		fmt.Println("\nnotes:")
		for _, n := range notes {
			fmt.Printf("  - %s\n", n)
		}
	}

	return nil
}

//
func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
