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
	"io"
	"os"

	"github.com/imdtools/imdkit/pkg/repo"
)

//
func NewLs() *Ls {

	l := &Ls{}
	l.Runner = *NewRunner(
		"ls [flags]",
		"list the IMD images of a repository",
		`
Use the ls command to list the IMD images known to a running imdkit API
server. With --repo, a repository folder is listed directly instead, no
server needed.`,
		"", runnerHelpEpilogue, l.Run)

	l.AddBaseSettings()
	l.AddSetting(&l.Repo, "repo", "r", "IMDKIT_REPO", "",
		"list this repository folder instead of asking the API server", false)

	return l
}

//
type Ls struct {
	Runner
	//
	Repo string
}

//
func (l *Ls) Run() error {

	l.ParseSettings()

	if l.Repo != "" {
		images, err := repo.List(l.Repo)
		if err != nil {
			return err
		}
		for _, img := range images {
			fmt.Println(img)
		}
		return nil
	}

	resp, err := l.apiCall("GET", "/images", false, nil)
	if err != nil {
		return err
	}
	defer resp.Close()

	_, err = io.Copy(os.Stdout, resp)
	return err
}
