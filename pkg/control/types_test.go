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

package control

import (
	"strings"
	"testing"

	"github.com/imdtools/imdkit/pkg/imd/analyze"
	"github.com/imdtools/imdkit/pkg/imd/check"
)

func TestCheckReport(t *testing.T) {

	res := &check.Results{
		TrackReadCount:    80,
		MaxHeadSeen:       1,
		CheckFailuresMask: check.CheckDataErrFlag,
	}

	rep := newCheckReport("disk.imd", res, check.DefaultErrorMask)
	if !rep.Passed {
		t.Error("warning-only mask must pass by default")
	}
	if len(rep.Failures) != 1 {
		t.Errorf("failures: %v", rep.Failures)
	}
	if !strings.Contains(rep.String(), "PASSED") {
		t.Errorf("report: %s", rep)
	}

	rep = newCheckReport("disk.imd", res, check.DefaultErrorMask|check.CheckDataErrFlag)
	if rep.Passed {
		t.Error("widened mask must fail the report")
	}
	if !strings.Contains(rep.String(), "FAILED") {
		t.Errorf("report: %s", rep)
	}
}

func TestAnalysisReport(t *testing.T) {

	a := &analyze.Analysis{
		TrackCount: 80,
		MaxCyl:     39,
		MaxHead:    1,
		RatesUsed:  analyze.Rate250k,
	}

	rep := newAnalysisReport("disk.imd", a)
	if rep.Cylinders != 40 || rep.Heads != 2 {
		t.Errorf("geometry %d x %d", rep.Cylinders, rep.Heads)
	}
	if rep.Problem != "" {
		t.Errorf("unexpected problem: %s", rep.Problem)
	}
	if len(rep.Recommendations) == 0 {
		t.Error("no recommendations in report")
	}
	if !strings.Contains(rep.String(), "possible drives") {
		t.Errorf("report: %s", rep)
	}

	// mixed rates cannot be recommended for
	a.RatesUsed = analyze.Rate250k | analyze.Rate500k
	rep = newAnalysisReport("disk.imd", a)
	if rep.Problem == "" {
		t.Error("mixed rates produced no problem note")
	}
}
