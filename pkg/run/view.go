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

	"github.com/imdtools/imdkit/pkg/view"
)

//
func NewView() *View {

	v := &View{}
	v.Runner = *NewRunner(
		"view {image}",
		"browse and patch an IMD image in a terminal UI",
		`
Use the view command to open an IMD image in an interactive sector viewer.
Tracks and sectors can be stepped through with the keyboard, sector data is
shown as a hex dump, and individual bytes can be patched and the image
saved back in place.`,
		"", runnerHelpEpilogue, v.Run)

	v.AddBaseSettings()

	return v
}

//
type View struct {
	Runner
}

//
func (v *View) Run() error {

	v.ParseSettings()

	if len(v.Args) != 1 {
		return fmt.Errorf("view needs an image file")
	}

	fill, err := v.fillByte()
	if err != nil {
		return err
	}

	viewer, err := view.New(v.Args[0], fill)
	if err != nil {
		return err
	}

	return viewer.Run()
}
