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
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/imdtools/imdkit/pkg/imd"
)

//
const runnerHelpPrologue = ""
const runnerHelpEpilogue = `- When a flag can be set via environment variable, the variable name is given
  in parenthesis at the end of the flag explanation. Note however that a flag,
  when specified overrides an environment variable.
`

/*
	NewRunner creates a base runner for commands to use. The parameters are
	passed to the base command wrapped by this runner.
*/
func NewRunner(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Runner {
	return &Runner{
		Command: *NewCommand(
			use, short, long, helpPrologue, helpEpilogue, exec),
	}
}

//
type Runner struct {
	//
	Command
	//
	Port int
	Fill string
}

//
func (r *Runner) AddBaseSettings() {
	// Implementation Note: This cannot be included in NewRunner, but rather has
	// to be called from the top level command type. Otherwise, we will confuse
	// Cobra/Viper and the settings will not be filled with their values.
	r.AddSetting(&r.Port, "port", "p", "IMDKIT_PORT", 8774,
		"port of the imdkit API server", false)
	r.AddSetting(&r.Fill, "fill", "", "IMDKIT_FILL", "",
		"fill byte for unavailable sectors, hex or decimal", false)
}

// fillByte resolves the fill byte setting, format default when unset.
func (r *Runner) fillByte() (byte, error) {
	if r.Fill == "" {
		return imd.FillByteDefault, nil
	}
	v, err := strconv.ParseUint(r.Fill, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid fill byte: %s", r.Fill)
	}
	return byte(v), nil
}

//
func (r *Runner) apiCall(method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	client := &http.Client{}
	req, err := http.NewRequest(
		method, fmt.Sprintf("http://127.0.0.1:%d%s", r.Port, path), body)
	if err != nil {
		return nil, err
	}

	if json {
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Accept", "application/json")
	} else {
		req.Header.Add("Content-Type", "text/plain")
		req.Header.Add("Accept", "text/plain")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// openInput opens an image file for buffered reading.
func openInput(file string) (io.ReadCloser, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	return &bufferedFile{file: f, reader: bufio.NewReader(f)}, nil
}

/*
	createOutput opens the output file for buffered writing, asking for
	confirmation before overwriting an existing file unless force is set.
	The returned closer flushes the buffer.
*/
func createOutput(file string, force bool) (io.WriteCloser, error) {

	if !force {
		if _, err := os.Stat(file); err == nil {
			if !GetUserConfirmation(
				fmt.Sprintf("output file '%s' exists, overwrite?", file)) {
				return nil, fmt.Errorf("operation cancelled")
			}
		}
	}

	f, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	return &bufferedFile{file: f, writer: bufio.NewWriter(f)}, nil
}

//
type bufferedFile struct {
	file   *os.File
	reader io.Reader
	writer *bufio.Writer
}

//
func (b *bufferedFile) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

//
func (b *bufferedFile) Write(p []byte) (int, error) {
	return b.writer.Write(p)
}

//
func (b *bufferedFile) Close() error {
	if b.writer != nil {
		if err := b.writer.Flush(); err != nil {
			b.file.Close()
			return err
		}
	}
	return b.file.Close()
}

// parseByteList parses a comma-separated list of byte values.
func parseByteList(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ret := make([]byte, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte value: %s", p)
		}
		ret = append(ret, byte(v))
	}
	return ret, nil
}
