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

	"github.com/imdtools/imdkit/pkg/imd"
)

//
func NewInfo() *Info {

	i := &Info{}
	i.Runner = *NewRunner(
		"info [-v|--verbose] [-d|--dump] {image}",
		"show header, comment and track summary of an IMD image",
		`
Use the info command to print the signature line, the comment block, and a
per-track summary of an IMD image.`,
		"", runnerHelpEpilogue, i.Run)

	i.AddBaseSettings()
	i.AddSetting(&i.Verbose, "verbose", "v", "", false,
		"also list every track", false)
	i.AddSetting(&i.Dump, "dump", "d", "", false,
		"hex dump all sector data", false)

	return i
}

//
type Info struct {
	Runner
	//
	Verbose bool
	Dump    bool
}

//
func (i *Info) Run() error {

	i.ParseSettings()

	if len(i.Args) != 1 {
		return fmt.Errorf("info needs exactly one image file argument")
	}

	fill, err := i.fillByte()
	if err != nil {
		return err
	}

	in, err := openInput(i.Args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	hdr, err := imd.ReadHeader(in)
	if err != nil {
		return err
	}
	comment, err := imd.ReadComment(in)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", hdr.Line)
	fmt.Printf("---\n%s\n---\n", comment)

	tracks, sectors := 0, 0

	for {
		t, err := imd.ReadTrack(in, fill, true)
		if err != nil {
			return fmt.Errorf("track %d: %w", tracks, err)
		}
		if t == nil {
			break
		}
		tracks++
		sectors += t.NumSectors

		if i.Verbose || i.Dump {
			il := imd.CalculateBestInterleave(t.SMap)
			fmt.Printf("C:%2d H:%d  %3s %3d kbps  %3d x %4d  interleave %d\n",
				t.Cyl, t.Head, recording(t.Mode), imd.RateOf(t.Mode),
				t.NumSectors, t.SectorSize, il)
		}
		if i.Dump {
			t.Emit(os.Stdout)
		}
	}

	fmt.Printf("\n%d tracks, %d sectors\n", tracks, sectors)
	return nil
}

//
func recording(mode byte) string {
	if imd.ModeIsMFM(mode) {
		return "MFM"
	}
	return "FM"
}
