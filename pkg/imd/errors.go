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

import "errors"

// Format errors. Codec functions wrap these with %w and fail fast; the
// tolerant scanner in pkg/imd/check converts some of them into check bits
// instead of aborting. Anything not matching one of these sentinels is an
// I/O error from the underlying stream and is always fatal.
var (
	ErrBadSignature     = errors.New("missing IMD signature")
	ErrTruncatedComment = errors.New("EOF before comment terminator (0x1A)")
	ErrTruncatedTrack   = errors.New("EOF inside track record")
	ErrInvalidMode      = errors.New("invalid track mode")
	ErrInvalidSizeCode  = errors.New("invalid sector size code")
	ErrInvalidFlag      = errors.New("invalid sector flag value")
	ErrTooManySectors   = errors.New("sector count exceeds track maximum")
	ErrPayloadLength    = errors.New("payload length inconsistent with sector flag")
	ErrModeTranslation  = errors.New("mode translation crosses FM/MFM boundary")
)

// IsFormat reports whether err is a structural format error rather than an
// underlying I/O failure.
func IsFormat(err error) bool {
	for _, s := range []error{
		ErrBadSignature, ErrTruncatedComment, ErrTruncatedTrack,
		ErrInvalidMode, ErrInvalidSizeCode, ErrInvalidFlag,
		ErrTooManySectors, ErrPayloadLength, ErrModeTranslation,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
