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

package main

import (
	"fmt"
	"os"

	"github.com/imdtools/imdkit/pkg/run"
)

//
var ImdKitVersion string

//
func synopsis() {
	fmt.Print(`
synopsis: imdctl {check|info|analyze|compare|copy|convert|view|serve|ls|version} ...

run 'imdctl {action} -h|--help' to see detailed info

`)
}

//
func version() {
	fmt.Printf("\nimdkit %s\n\n", ImdKitVersion)
}

//
func main() {

	var action string
	var args []string

	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	switch action {

	case "check":
		run.DieOnError(run.NewCheck().Execute(args))

	case "info":
		run.DieOnError(run.NewInfo().Execute(args))

	case "analyze":
		run.DieOnError(run.NewAnalyze().Execute(args))

	case "compare":
		run.DieOnError(run.NewCompare().Execute(args))

	case "copy":
		run.DieOnError(run.NewCopy().Execute(args))

	case "convert":
		run.DieOnError(run.NewConvert().Execute(args))

	case "view":
		run.DieOnError(run.NewView().Execute(args))

	case "serve":
		version()
		run.DieOnError(run.NewServe().Execute(args))

	case "ls":
		run.DieOnError(run.NewLs().Execute(args))

	case "version":
		version()

	case "":
		fallthrough
	case "-h":
		fallthrough
	case "--help":
		synopsis()

	default:
		run.Die("unknown action: %s\n", action)
	}
}
