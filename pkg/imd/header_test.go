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
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadHeader(t *testing.T) {

	h, err := ReadHeader(strings.NewReader(
		"IMD 1.19: 2/03/2024 16:21:14\ncomment"))
	if err != nil {
		t.Fatalf("valid header rejected: %v", err)
	}
	if h.Line != "IMD 1.19: 2/03/2024 16:21:14" {
		t.Errorf("wrong line: %q", h.Line)
	}
	if h.Version != "1.19: 2/03/2024 16:21:14" {
		t.Errorf("wrong version: %q", h.Version)
	}
}

func TestReadHeaderCRLF(t *testing.T) {

	h, err := ReadHeader(strings.NewReader("IMD 1.18\r\n"))
	if err != nil {
		t.Fatalf("CRLF header rejected: %v", err)
	}
	if h.Line != "IMD 1.18" {
		t.Errorf("CR not stripped: %q", h.Line)
	}
}

func TestReadHeaderLowerCase(t *testing.T) {

	if _, err := ReadHeader(strings.NewReader("imd 1.17\n")); err != nil {
		t.Errorf("case-insensitive signature rejected: %v", err)
	}
}

func TestReadHeaderInvalid(t *testing.T) {

	for _, in := range []string{
		"MFM 1.19\n", // wrong magic
		"IMD 1.19",   // EOF before newline
		"",
	} {
		if _, err := ReadHeader(strings.NewReader(in)); !errors.Is(err, ErrBadSignature) {
			t.Errorf("input %q: expected ErrBadSignature, got %v", in, err)
		}
	}

	long := "IMD " + strings.Repeat("x", MaxHeaderLine) + "\n"
	if _, err := ReadHeader(strings.NewReader(long)); !errors.Is(err, ErrBadSignature) {
		t.Errorf("oversized line: expected ErrBadSignature, got %v", err)
	}
}

func TestCommentRoundTrip(t *testing.T) {

	var buf bytes.Buffer

	comment := []byte("created for testing\r\nsecond line")
	if err := WriteComment(&buf, comment); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := ReadComment(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, comment) {
		t.Errorf("comment round trip: got %q", got)
	}
	if buf.Len() != 0 {
		t.Errorf("%d bytes left after terminator", buf.Len())
	}
}

func TestReadCommentTruncated(t *testing.T) {

	got, err := ReadComment(strings.NewReader("no terminator here"))
	if !errors.Is(err, ErrTruncatedComment) {
		t.Fatalf("expected ErrTruncatedComment, got %v", err)
	}
	// partial content still comes back for reporting
	if string(got) != "no terminator here" {
		t.Errorf("partial comment lost: %q", got)
	}
}

func TestSkipComment(t *testing.T) {

	r := strings.NewReader("some comment\x1aX")
	if err := SkipComment(r); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	b, _ := readByte(r)
	if b != 'X' {
		t.Errorf("positioned at %q after skip, want X", b)
	}

	if err := SkipComment(strings.NewReader("undelimited")); !errors.Is(err, ErrTruncatedComment) {
		t.Errorf("expected ErrTruncatedComment, got %v", err)
	}
}

func TestWriteHeader(t *testing.T) {

	var buf bytes.Buffer
	if err := WriteHeader(&buf, "1.19"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.String() != "IMD 1.19\n" {
		t.Errorf("wrong header line: %q", buf.String())
	}

	h, err := ReadHeader(&buf)
	if err != nil {
		t.Fatalf("own header rejected: %v", err)
	}
	if h.Version != "1.19" {
		t.Errorf("wrong version after round trip: %q", h.Version)
	}
}
