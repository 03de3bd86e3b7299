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

	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/control"
)

//
func NewServe() *Serve {

	s := &Serve{}
	s.Runner = *NewRunner(
		"serve [flags]",
		"run the imdkit API server",
		`
Use the serve command to run the imdkit API server. It exposes the images
of a repository folder over HTTP, with endpoints for listing them and for
retrieving per-image info, consistency check reports, analysis reports and
comment blocks.`,
		"", runnerHelpEpilogue, s.Run)

	s.AddBaseSettings()
	s.AddSetting(&s.Address, "address", "a", "IMDKIT_ADDRESS", "",
		"listen address, defaults to localhost at the API port", false)
	s.AddSetting(&s.Repo, "repo", "r", "IMDKIT_REPO", ".",
		"repository folder with the IMD images to serve", false)

	return s
}

//
type Serve struct {
	Runner
	//
	Address string
	Repo    string
}

//
func (s *Serve) Run() error {

	s.ParseSettings()

	addr := s.Address
	if addr == "" {
		addr = fmt.Sprintf("127.0.0.1:%d", s.Port)
	}

	log.WithFields(log.Fields{
		"address": addr,
		"repo":    s.Repo,
	}).Info("starting API server")

	return control.NewAPIServer(addr, s.Repo).Serve()
}
