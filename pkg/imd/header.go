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
	"fmt"
	"io"
	"strings"
)

const (
	// CommentTerminator ends the comment block and starts track data.
	CommentTerminator = 0x1a

	// MaxHeaderLine bounds the signature line, terminator included.
	MaxHeaderLine = 256

	// MaxCommentSize is the soft cap on the comment block.
	MaxCommentSize = 65536

	signature = "IMD"
)

// HeaderInfo is the parsed signature line of an image.
type HeaderInfo struct {
	// Line is the full line without its terminating newline.
	Line string
	// Version is the free-form version/date text following the signature.
	Version string
}

//
func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

/*
	ReadHeader consumes the signature line of an IMD image: one line
	terminated by '\n', beginning with the case-insensitive "IMD" magic.
	The stream is left positioned at the first comment byte.
*/
func ReadHeader(r io.Reader) (*HeaderInfo, error) {

	var sb strings.Builder

	for sb.Len() < MaxHeaderLine {
		b, err := readByte(r)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: EOF in signature line", ErrBadSignature)
		}
		if err != nil {
			return nil, err
		}
		if b == '\n' {
			line := strings.TrimRight(sb.String(), "\r")
			if !strings.HasPrefix(strings.ToUpper(line), signature) {
				return nil, fmt.Errorf("%w: %q", ErrBadSignature, line)
			}
			return &HeaderInfo{
				Line:    line,
				Version: strings.TrimSpace(line[len(signature):]),
			}, nil
		}
		sb.WriteByte(b)
	}

	return nil, fmt.Errorf("%w: signature line longer than %d bytes",
		ErrBadSignature, MaxHeaderLine)
}

// WriteHeader writes the signature line for the given version text.
func WriteHeader(w io.Writer, version string) error {
	_, err := fmt.Fprintf(w, "%s %s\n", signature, version)
	return err
}

/*
	ReadComment reads the comment block up to, and excluding, the 0x1A
	terminator. Hitting EOF before the terminator is a format error; the
	bytes read so far are returned alongside it so tolerant callers can
	still report them.
*/
func ReadComment(r io.Reader) ([]byte, error) {

	buf := make([]byte, 0, 256)

	for len(buf) <= MaxCommentSize {
		b, err := readByte(r)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return buf, ErrTruncatedComment
		}
		if err != nil {
			return buf, err
		}
		if b == CommentTerminator {
			return buf, nil
		}
		buf = append(buf, b)
	}

	return buf, fmt.Errorf("%w: no terminator within %d bytes",
		ErrTruncatedComment, MaxCommentSize)
}

// SkipComment discards the comment block including its terminator, with
// the same failure modes as ReadComment but without buffering.
func SkipComment(r io.Reader) error {

	for ix := 0; ix <= MaxCommentSize; ix++ {
		b, err := readByte(r)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ErrTruncatedComment
		}
		if err != nil {
			return err
		}
		if b == CommentTerminator {
			return nil
		}
	}

	return fmt.Errorf("%w: no terminator within %d bytes",
		ErrTruncatedComment, MaxCommentSize)
}

// WriteComment writes the comment bytes followed by the terminator.
func WriteComment(w io.Writer, comment []byte) error {
	if _, err := w.Write(comment); err != nil {
		return err
	}
	_, err := w.Write([]byte{CommentTerminator})
	return err
}
