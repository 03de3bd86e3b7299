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

package imd

import (
	"encoding/hex"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

/*
	Track is the decoded form of one IMD track record. Data always holds
	NumSectors * SectorSize bytes in physical slot order; sectors without
	stored payload are filled with the fill byte given at read time, so
	offset arithmetic stays uniform. A Track read with ReadTrackHeader has
	Data == nil.
*/
type Track struct {
	Mode     byte
	Cyl      byte
	Head     byte // low six bits only
	HFlag    byte // map presence bits from the head byte
	SizeCode byte

	NumSectors int
	SectorSize int

	SMap  []byte
	CMap  []byte // nil unless HFlagCylMap set
	HMap  []byte // nil unless HFlagHeadMap set
	SFlag []byte

	Data []byte
}

//
func (t *Track) HasCylMap() bool {
	return t.HFlag&HFlagCylMap != 0
}

//
func (t *Track) HasHeadMap() bool {
	return t.HFlag&HFlagHeadMap != 0
}

// SectorData returns the in-memory payload of the physical slot ix, or nil
// when out of range or when the track was read header-only.
func (t *Track) SectorData(ix int) []byte {
	if t.Data == nil || ix < 0 || ix >= t.NumSectors {
		return nil
	}
	return t.Data[ix*t.SectorSize : (ix+1)*t.SectorSize]
}

// SlotOfID returns the physical slot holding the logical sector ID, or -1.
func (t *Track) SlotOfID(id byte) int {
	for ix, s := range t.SMap {
		if s == id {
			return ix
		}
	}
	return -1
}

// HasDuplicateIDs reports whether the sector map repeats a logical ID.
func (t *Track) HasDuplicateIDs() bool {
	var seen [256]bool
	for _, id := range t.SMap {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}

/*
	PadSectors grows the track to target sectors per track, appending
	unavailable sectors with fresh logical IDs (lowest unused, counting up)
	and fill-byte payloads. Tracks already at or above target are left
	alone.
*/
func (t *Track) PadSectors(target int, fill byte) error {

	if target > 255 {
		return fmt.Errorf("%w: target %d", ErrTooManySectors, target)
	}
	if target <= t.NumSectors || t.SectorSize == 0 {
		return nil
	}

	var used [256]bool
	for _, id := range t.SMap {
		used[id] = true
	}

	nextID := 0
	grown := make([]byte, target*t.SectorSize)
	copy(grown, t.Data)
	for ix := len(t.Data); ix < len(grown); ix++ {
		grown[ix] = fill
	}
	t.Data = grown

	for t.NumSectors < target {
		for nextID < 256 && used[nextID] {
			nextID++
		}
		if nextID == 256 {
			return fmt.Errorf("no unused sector ID left on C:%d H:%d",
				t.Cyl, t.Head)
		}
		used[nextID] = true

		t.SMap = append(t.SMap, byte(nextID))
		t.SFlag = append(t.SFlag, SFlagUnavailable)
		if t.HasCylMap() {
			t.CMap = append(t.CMap, t.Cyl)
		}
		if t.HasHeadMap() {
			t.HMap = append(t.HMap, t.Head)
		}
		t.NumSectors++
	}

	return nil
}

// Emit writes a human-readable dump of the track to w.
func (t *Track) Emit(w io.Writer) {

	fmt.Fprintf(w, "\nTRACK C:%d H:%d - %d kbps %s, %d x %d bytes\n",
		t.Cyl, t.Head, RateOf(t.Mode), recording(t.Mode),
		t.NumSectors, t.SectorSize)
	fmt.Fprintf(w, "  smap: %v\n", t.SMap)
	if t.HasCylMap() {
		fmt.Fprintf(w, "  cmap: %v\n", t.CMap)
	}
	if t.HasHeadMap() {
		fmt.Fprintf(w, "  hmap: %v\n", t.HMap)
	}
	fmt.Fprintf(w, "  flags: % 02x\n", t.SFlag)

	if t.Data == nil {
		return
	}
	d := hex.Dumper(w)
	defer d.Close()
	d.Write(t.Data)
}

//
func recording(mode byte) string {
	if ModeIsMFM(mode) {
		return "MFM"
	}
	return "FM"
}

/*
	ReadTrack decodes one track record from r, expanding sector payloads
	into the unified data buffer; unavailable sectors are filled with fill.
	It returns (nil, nil) on clean end of stream, i.e. EOF before the mode
	byte. When strict is set, out-of-range sector flag bytes abort the read;
	otherwise they are kept as read and treated as carrying no payload, so a
	tolerant scanner can keep walking the file.
*/
func ReadTrack(r io.Reader, fill byte, strict bool) (*Track, error) {
	return readTrack(r, fill, strict, true)
}

// ReadTrackHeader performs the same walk as ReadTrack but skips sector
// payload bytes instead of buffering them; the result has Data == nil.
func ReadTrackHeader(r io.Reader, strict bool) (*Track, error) {
	return readTrack(r, 0, strict, false)
}

//
func readTrack(r io.Reader, fill byte, strict, withData bool) (*Track, error) {

	mode, err := readByte(r)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, nil // clean end of image
	}
	if err != nil {
		return nil, err
	}

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, wrapTruncated(err, "track header")
	}

	t := &Track{
		Mode:       mode,
		Cyl:        hdr[0],
		Head:       hdr[1] & HeadMask,
		HFlag:      hdr[1] &^ HeadMask,
		NumSectors: int(hdr[2]),
		SizeCode:   hdr[3],
	}

	if int(t.Mode) >= NumModes {
		return nil, fmt.Errorf("%w: %d on C:%d H:%d",
			ErrInvalidMode, t.Mode, t.Cyl, t.Head)
	}
	size, ok := SectorSize(t.SizeCode)
	if !ok {
		return nil, fmt.Errorf("%w: %d on C:%d H:%d",
			ErrInvalidSizeCode, t.SizeCode, t.Cyl, t.Head)
	}
	t.SectorSize = size
	if t.NumSectors > MaxSectorsPerTrack {
		return nil, fmt.Errorf("%w: %d", ErrTooManySectors, t.NumSectors)
	}

	t.SMap = make([]byte, t.NumSectors)
	if _, err := io.ReadFull(r, t.SMap); err != nil {
		return nil, wrapTruncated(err, "sector map")
	}
	if t.HasCylMap() {
		t.CMap = make([]byte, t.NumSectors)
		if _, err := io.ReadFull(r, t.CMap); err != nil {
			return nil, wrapTruncated(err, "cylinder map")
		}
	}
	if t.HasHeadMap() {
		t.HMap = make([]byte, t.NumSectors)
		if _, err := io.ReadFull(r, t.HMap); err != nil {
			return nil, wrapTruncated(err, "head map")
		}
	}

	t.SFlag = make([]byte, t.NumSectors)
	if _, err := io.ReadFull(r, t.SFlag); err != nil {
		return nil, wrapTruncated(err, "sector flags")
	}
	for ix, f := range t.SFlag {
		if !ValidFlag(f) {
			if strict {
				return nil, fmt.Errorf("%w: 0x%02x in slot %d of C:%d H:%d",
					ErrInvalidFlag, f, ix, t.Cyl, t.Head)
			}
			log.Warnf("invalid sector flag 0x%02x in slot %d of C:%d H:%d",
				f, ix, t.Cyl, t.Head)
		}
	}

	if withData {
		t.Data = make([]byte, t.NumSectors*t.SectorSize)
	}

	for ix := 0; ix < t.NumSectors; ix++ {

		flag := t.SFlag[ix]
		n := 0
		switch {
		case !HasData(flag):
			// nothing stored; invalid flags land here in tolerant mode
		case IsCompressed(flag):
			n = 1
		default:
			n = t.SectorSize
		}

		if !withData {
			if n > 0 {
				if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
					return nil, wrapTruncated(err, "sector payload")
				}
			}
			continue
		}

		dst := t.Data[ix*t.SectorSize : (ix+1)*t.SectorSize]
		if n == 0 {
			for jx := range dst {
				dst[jx] = fill
			}
			continue
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, wrapTruncated(err, "sector payload")
		}
		dec, err := DecodeSector(flag, payload, t.SectorSize, fill)
		if err != nil {
			return nil, err
		}
		copy(dst, dec)
	}

	return t, nil
}

//
func wrapTruncated(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: in %s", ErrTruncatedTrack, what)
	}
	return err
}

/*
	WriteOptions controls track re-serialization. The zero value writes a
	track back the way it was read: as-read compression, no forced flag
	changes, no mode translation, physical sector order.
*/
type WriteOptions struct {
	Compression CompressionMode

	// ForceNonDeleted and ForceNonBad clear the DAM respectively error
	// marks of every sector on write.
	ForceNonDeleted bool
	ForceNonBad     bool

	// ModeMap translates the track mode: ModeMap[old] = new. Nil leaves
	// modes untouched. Translation may not cross the FM/MFM boundary.
	ModeMap *[NumModes]byte

	// Interleave rewrites the sector order before serialization:
	// InterleaveAsRead, InterleaveBestGuess, or an explicit factor.
	Interleave int
}

/*
	TranslateRate records a data rate translation in ModeMap, mapping every
	mode with rate from (in kbps) to the same recording type at rate to.
	Crossing the FM/MFM boundary is impossible by construction here; unknown
	rates are rejected.
*/
func (o *WriteOptions) TranslateRate(from, to int) error {

	if o.ModeMap == nil {
		o.ModeMap = identityModeMap()
	}

	found := false
	for m := 0; m < NumModes; m++ {
		if ModeRates[m] != from {
			continue
		}
		for n := 0; n < NumModes; n++ {
			if ModeRates[n] == to && (m < 3) == (n < 3) {
				o.ModeMap[m] = byte(n)
				found = true
				break
			}
		}
	}

	if !found {
		return fmt.Errorf("no mode translation from %d to %d kbps", from, to)
	}
	return nil
}

//
func identityModeMap() *[NumModes]byte {
	var m [NumModes]byte
	for ix := range m {
		m[ix] = byte(ix)
	}
	return &m
}

//
func (o *WriteOptions) translateMode(mode byte) (byte, error) {
	if o == nil || o.ModeMap == nil {
		return mode, nil
	}
	out := o.ModeMap[mode]
	if int(out) >= NumModes {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMode, out)
	}
	if (mode < 3) != (out < 3) {
		return 0, fmt.Errorf("%w: %d -> %d", ErrModeTranslation, mode, out)
	}
	return out, nil
}

/*
	emissionOrder resolves the physical slot order in which sectors leave
	the track on write, honoring opts.Interleave. It returns the slot
	permutation and the sector map to serialize. Re-interleaving a map with
	duplicate or non-contiguous IDs fails.
*/
func emissionOrder(t *Track, opts *WriteOptions) ([]int, []byte, error) {

	order := make([]int, t.NumSectors)
	for ix := range order {
		order[ix] = ix
	}

	factor := InterleaveAsRead
	if opts != nil {
		factor = opts.Interleave
	}
	if factor == InterleaveBestGuess {
		factor = CalculateBestInterleave(t.SMap)
	}
	if factor <= 0 || t.NumSectors == 0 {
		return order, t.SMap, nil
	}

	base := t.SMap[0]
	for _, id := range t.SMap[1:] {
		if id < base {
			base = id
		}
	}

	smap := GenerateInterleavedMap(t.NumSectors, factor, base)
	for ix, id := range smap {
		slot := t.SlotOfID(id)
		if slot < 0 {
			return nil, nil, fmt.Errorf(
				"cannot re-interleave C:%d H:%d: sector ID %d not in map",
				t.Cyl, t.Head, id)
		}
		order[ix] = slot
	}

	return order, smap, nil
}

/*
	WriteTrack serializes the track to w under opts, re-encoding every
	sector payload through the sector codec. The caller's track is not
	modified. Structural problems surface as format errors before anything
	is written; I/O errors abort mid-write.
*/
func WriteTrack(w io.Writer, t *Track, opts *WriteOptions) error {

	if err := validateForWrite(t); err != nil {
		return err
	}

	mode, err := opts.translateMode(t.Mode)
	if err != nil {
		return err
	}

	order, smap, err := emissionOrder(t, opts)
	if err != nil {
		return err
	}

	comp := CompressionAsRead
	if opts != nil {
		comp = opts.Compression
	}

	flags := make([]byte, t.NumSectors)
	payloads := make([][]byte, t.NumSectors)
	for ix, slot := range order {
		flag, payload := EncodeSector(t.SectorData(slot), t.SFlag[slot], comp)
		if opts != nil && opts.ForceNonDeleted && HasDAM(flag) {
			flag -= 2
		}
		if opts != nil && opts.ForceNonBad && HasErr(flag) {
			flag -= 4
		}
		flags[ix] = flag
		payloads[ix] = payload
	}

	hdr := []byte{
		mode,
		t.Cyl,
		(t.Head & HeadMask) | t.HFlag,
		byte(t.NumSectors),
		t.SizeCode,
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if _, err := w.Write(smap); err != nil {
		return err
	}
	if t.HasCylMap() {
		if err := writeReordered(w, t.CMap, order); err != nil {
			return err
		}
	}
	if t.HasHeadMap() {
		if err := writeReordered(w, t.HMap, order); err != nil {
			return err
		}
	}
	if _, err := w.Write(flags); err != nil {
		return err
	}
	for _, p := range payloads {
		if len(p) == 0 {
			continue
		}
		if _, err := w.Write(p); err != nil {
			return err
		}
	}

	log.Tracef("wrote track C:%d H:%d, %d sectors", t.Cyl, t.Head, t.NumSectors)
	return nil
}

/*
	WriteTrackBin emits only the raw sector payloads, in the slot order
	resolved from opts.Interleave; factor 1 therefore yields ascending
	logical ID order. Sectors without stored data leave their fill-byte
	buffer, keeping the output geometry complete.
*/
func WriteTrackBin(w io.Writer, t *Track, opts *WriteOptions) error {

	if err := validateForWrite(t); err != nil {
		return err
	}
	if t.Data == nil {
		return fmt.Errorf("track C:%d H:%d carries no data", t.Cyl, t.Head)
	}

	order, _, err := emissionOrder(t, opts)
	if err != nil {
		return err
	}

	for _, slot := range order {
		if _, err := w.Write(t.SectorData(slot)); err != nil {
			return err
		}
	}
	return nil
}

//
func writeReordered(w io.Writer, m []byte, order []int) error {
	out := make([]byte, len(m))
	for ix, slot := range order {
		out[ix] = m[slot]
	}
	_, err := w.Write(out)
	return err
}

//
func validateForWrite(t *Track) error {

	if int(t.Mode) >= NumModes {
		return fmt.Errorf("%w: %d", ErrInvalidMode, t.Mode)
	}
	if _, ok := SectorSize(t.SizeCode); !ok {
		return fmt.Errorf("%w: %d", ErrInvalidSizeCode, t.SizeCode)
	}
	// the on-disk count is a single byte
	if t.NumSectors < 0 || t.NumSectors > 255 {
		return fmt.Errorf("%w: %d", ErrTooManySectors, t.NumSectors)
	}
	if len(t.SMap) != t.NumSectors || len(t.SFlag) != t.NumSectors {
		return fmt.Errorf("map/flag length does not match sector count %d",
			t.NumSectors)
	}
	if t.HasCylMap() && len(t.CMap) != t.NumSectors {
		return fmt.Errorf("cylinder map length %d does not match sector count %d",
			len(t.CMap), t.NumSectors)
	}
	if t.HasHeadMap() && len(t.HMap) != t.NumSectors {
		return fmt.Errorf("head map length %d does not match sector count %d",
			len(t.HMap), t.NumSectors)
	}
	for _, f := range t.SFlag {
		if !ValidFlag(f) {
			return fmt.Errorf("%w: 0x%02x", ErrInvalidFlag, f)
		}
	}
	if t.Data != nil && len(t.Data) != t.NumSectors*t.SectorSize {
		return fmt.Errorf("data buffer is %d bytes, want %d",
			len(t.Data), t.NumSectors*t.SectorSize)
	}
	return nil
}
