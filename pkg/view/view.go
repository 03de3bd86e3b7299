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

/*
Package view is a full-screen terminal browser for IMD images: track list,
sector map, hex dump of the selected sector, and in-place byte editing.
Edits stay in memory until the user saves; quitting without saving
discards them.
*/
package view

import (
	"fmt"
	"os"

	"github.com/gdamore/tcell/v2"
	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/imd"
)

const bytesPerRow = 16

/*
	Viewer drives one interactive session over a loaded image. It owns the
	screen for the duration of Run.
*/
type Viewer struct {
	img  *imd.Image
	file string

	s tcell.Screen

	track  int
	slot   int
	offset int

	editing    bool
	editNibble int
	editVal    byte

	status string
}

// New creates a viewer for the image in the given file.
func New(file string, fill byte) (*Viewer, error) {

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := imd.Load(f, fill)
	if err != nil {
		return nil, err
	}
	if len(img.Tracks) == 0 {
		return nil, fmt.Errorf("image '%s' contains no tracks", file)
	}

	return &Viewer{img: img, file: file}, nil
}

// Run enters the event loop and blocks until the user quits.
func (v *Viewer) Run() error {

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	s.DisableMouse()
	v.s = s
	defer s.Fini()

	for {
		v.draw()
		switch ev := s.PollEvent().(type) {
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			if quit := v.handleKey(ev); quit {
				return nil
			}
		}
	}
}

//
func (v *Viewer) handleKey(ev *tcell.EventKey) bool {

	if v.editing {
		v.handleEditKey(ev)
		return false
	}

	switch ev.Key() {

	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true

	case tcell.KeyUp:
		v.moveOffset(-bytesPerRow)
	case tcell.KeyDown:
		v.moveOffset(bytesPerRow)
	case tcell.KeyLeft:
		v.moveOffset(-1)
	case tcell.KeyRight:
		v.moveOffset(1)

	case tcell.KeyPgUp:
		v.moveSlot(-1)
	case tcell.KeyPgDn:
		v.moveSlot(1)

	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			if v.img.IsModified() {
				v.status = "unsaved changes, save with 'w' or quit with ESC"
				return false
			}
			return true
		case 't':
			v.moveTrack(1)
		case 'T':
			v.moveTrack(-1)
		case 's':
			v.moveSlot(1)
		case 'S':
			v.moveSlot(-1)
		case 'e':
			v.beginEdit()
		case 'w':
			v.save()
		}
	}

	return false
}

//
func (v *Viewer) handleEditKey(ev *tcell.EventKey) {

	if ev.Key() == tcell.KeyEscape {
		v.editing = false
		v.status = "edit cancelled"
		return
	}

	if ev.Key() != tcell.KeyRune {
		return
	}

	d, ok := hexDigit(ev.Rune())
	if !ok {
		return
	}

	if v.editNibble == 0 {
		v.editVal = d << 4
		v.editNibble = 1
		return
	}

	v.editVal |= d
	v.editing = false

	if err := v.img.SetSectorByte(
		v.track, v.slot, v.offset, v.editVal); err != nil {
		v.status = err.Error()
	} else {
		v.status = fmt.Sprintf("set offset 0x%03x to 0x%02x",
			v.offset, v.editVal)
	}
}

//
func hexDigit(r rune) (byte, bool) {
	switch {
	case r >= '0' && r <= '9':
		return byte(r - '0'), true
	case r >= 'a' && r <= 'f':
		return byte(r-'a') + 10, true
	case r >= 'A' && r <= 'F':
		return byte(r-'A') + 10, true
	}
	return 0, false
}

//
func (v *Viewer) currentTrack() *imd.Track {
	return v.img.Tracks[v.track]
}

//
func (v *Viewer) moveTrack(delta int) {
	v.track = clamp(v.track+delta, 0, len(v.img.Tracks)-1)
	v.slot = 0
	v.offset = 0
	v.status = ""
}

//
func (v *Viewer) moveSlot(delta int) {
	t := v.currentTrack()
	v.slot = clamp(v.slot+delta, 0, t.NumSectors-1)
	v.offset = 0
	v.status = ""
}

//
func (v *Viewer) moveOffset(delta int) {
	t := v.currentTrack()
	v.offset = clamp(v.offset+delta, 0, t.SectorSize-1)
	v.status = ""
}

//
func (v *Viewer) beginEdit() {
	t := v.currentTrack()
	if !imd.HasData(t.SFlag[v.slot]) {
		v.status = "sector has no data"
		return
	}
	v.editing = true
	v.editNibble = 0
	v.editVal = 0
	v.status = "enter two hex digits, ESC to cancel"
}

//
func (v *Viewer) save() {

	f, err := os.Create(v.file)
	if err != nil {
		v.status = err.Error()
		return
	}
	defer f.Close()

	if err := v.img.Save(f, nil); err != nil {
		v.status = err.Error()
		return
	}

	log.Debugf("saved image to %s", v.file)
	v.status = fmt.Sprintf("saved to %s", v.file)
}

//
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

//
func putStr(s tcell.Screen, x, y int, style tcell.Style, str string) {
	w, _ := s.Size()
	for i, r := range []rune(str) {
		if x+i >= w {
			break
		}
		s.SetContent(x+i, y, r, nil, style)
	}
}

//
func (v *Viewer) draw() {

	s := v.s
	s.Clear()
	_, h := s.Size()

	plain := tcell.StyleDefault
	bold := plain.Bold(true)
	inverse := plain.Reverse(true)

	t := v.currentTrack()

	title := fmt.Sprintf(" %s | track %d/%d | C:%d H:%d | %s %d kbps | %d x %d bytes ",
		v.file, v.track+1, len(v.img.Tracks), t.Cyl, t.Head,
		recordingName(t.Mode), imd.RateOf(t.Mode),
		t.NumSectors, t.SectorSize)
	if v.img.IsModified() {
		title += "[modified] "
	}
	putStr(s, 0, 0, bold, title)

	// sector map with status letters
	y := 2
	putStr(s, 0, y, plain, "sectors:")
	y++
	x := 2
	for i := 0; i < t.NumSectors; i++ {
		style := plain
		if i == v.slot {
			style = inverse
		}
		putStr(s, x, y, style,
			fmt.Sprintf("%3d%c", t.SMap[i], flagLetter(t.SFlag[i])))
		x += 5
		if x > 70 {
			x = 2
			y++
		}
	}
	y += 2

	// hex dump of the selected sector
	data := t.SectorData(v.slot)
	if data == nil {
		putStr(s, 0, y, plain, "no data stored for this sector")
	} else {
		for row := 0; row*bytesPerRow < len(data) && y < h-2; row++ {
			off := row * bytesPerRow
			putStr(s, 0, y, plain, fmt.Sprintf("%04x", off))
			ascii := make([]rune, 0, bytesPerRow)
			for i := 0; i < bytesPerRow && off+i < len(data); i++ {
				b := data[off+i]
				style := plain
				if off+i == v.offset {
					style = inverse
				}
				putStr(s, 6+i*3, y, style, fmt.Sprintf("%02x", b))
				if b >= 0x20 && b < 0x7f {
					ascii = append(ascii, rune(b))
				} else {
					ascii = append(ascii, '.')
				}
			}
			putStr(s, 6+bytesPerRow*3+2, y, plain, string(ascii))
			y++
		}
	}

	help := "t/T track  PgUp/PgDn sector  arrows byte  e edit  w save  q quit"
	putStr(s, 0, h-2, plain, help)
	if v.status != "" {
		putStr(s, 0, h-1, bold, v.status)
	}

	s.Show()
}

//
func flagLetter(f byte) rune {
	switch {
	case !imd.ValidFlag(f):
		return '?'
	case !imd.HasData(f):
		return '-'
	case imd.HasErr(f):
		return 'E'
	case imd.HasDAM(f):
		return 'D'
	case imd.IsCompressed(f):
		return 'c'
	}
	return ' '
}

//
func recordingName(mode byte) string {
	if imd.ModeIsMFM(mode) {
		return "MFM"
	}
	return "FM"
}
