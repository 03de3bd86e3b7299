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

// Package repo resolves image names inside a repository directory of IMD
// files. Names are confined to the directory, so a repository can safely
// be exposed through the API server.
package repo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

//
const imageExtension = ".imd"

//
func newFileSource(file string) (*fileSource, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	return &fileSource{file: f, reader: bufio.NewReader(f)}, nil
}

//
type fileSource struct {
	file   *os.File
	reader io.Reader
}

//
func (fs *fileSource) Read(p []byte) (n int, err error) {
	return fs.reader.Read(p)
}

//
func (fs *fileSource) Close() error {
	return fs.file.Close()
}

/*
	Resolve opens the image with the given name from the repository
	directory. The name may omit the .imd extension. Names that would
	escape the repository are rejected.
*/
func Resolve(name, repository string) (io.ReadCloser, error) {

	log.WithFields(log.Fields{
		"name":       name,
		"repository": repository,
	}).Debug("resolving image name")

	if repository == "" {
		return nil, fmt.Errorf("image repository is not enabled")
	}

	p, err := safePath(name, repository)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(p); os.IsNotExist(err) &&
		!strings.HasSuffix(strings.ToLower(name), imageExtension) {
		p += imageExtension
	}

	return newFileSource(p)
}

// List returns the names of all images in the repository, sorted.
func List(repository string) ([]string, error) {

	entries, err := os.ReadDir(repository)
	if err != nil {
		return nil, err
	}

	ret := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), imageExtension) {
			ret = append(ret, e.Name())
		}
	}

	sort.Strings(ret)
	return ret, nil
}

//
func safePath(name, repository string) (string, error) {

	p := filepath.Join(repository, filepath.Clean("/"+name))
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	base, err := filepath.Abs(repository)
	if err != nil {
		return "", err
	}
	if abs != base && !strings.HasPrefix(abs, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("image name escapes repository: %s", name)
	}
	return abs, nil
}
