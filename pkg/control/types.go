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
	"fmt"
	"strings"

	"github.com/imdtools/imdkit/pkg/imd/analyze"
	"github.com/imdtools/imdkit/pkg/imd/check"
)

//
type ImageList struct {
	Images []string `json:"images"`
}

//
func (l *ImageList) String() string {
	ret := "\nIMAGES"
	for _, name := range l.Images {
		ret += "\n  " + name
	}
	return ret
}

// ImageInfo is the geometry summary served for one image.
type ImageInfo struct {
	Name      string `json:"name"`
	Header    string `json:"header"`
	Tracks    int    `json:"tracks"`
	Cylinders int    `json:"cylinders"`
	Heads     int    `json:"heads"`
	Rates     []int  `json:"rates"`
}

//
func (i *ImageInfo) String() string {
	rates := make([]string, len(i.Rates))
	for ix, r := range i.Rates {
		rates[ix] = fmt.Sprintf("%d kbps", r)
	}
	return fmt.Sprintf(
		"\n%s\n  header:    %s\n  tracks:    %d\n  cylinders: %d\n  heads:     %d\n  rates:     %s",
		i.Name, i.Header, i.Tracks, i.Cylinders, i.Heads,
		strings.Join(rates, ", "))
}

// CheckReport wraps checker results for one image.
type CheckReport struct {
	Name     string   `json:"name"`
	Passed   bool     `json:"passed"`
	Mask     uint32   `json:"failuresMask"`
	Failures []string `json:"failures"`
	Summary  string   `json:"summary"`
}

//
func newCheckReport(name string, res *check.Results, mask uint32) *CheckReport {
	return &CheckReport{
		Name:     name,
		Passed:   res.Passed(mask),
		Mask:     res.CheckFailuresMask,
		Failures: res.FailedChecks(),
		Summary:  res.Summary(),
	}
}

//
func (r *CheckReport) String() string {
	verdict := "PASSED"
	if !r.Passed {
		verdict = "FAILED"
	}
	return fmt.Sprintf("\n%s: %s\n%s", r.Name, verdict, r.Summary)
}

// AnalysisReport wraps the analyzer output for one image.
type AnalysisReport struct {
	Name            string   `json:"name"`
	Cylinders       int      `json:"cylinders"`
	Heads           int      `json:"heads"`
	Rates           []int    `json:"rates"`
	MaxTrackBytes   int      `json:"maxTrackBytes"`
	Recommendations []string `json:"recommendations,omitempty"`
	Problem         string   `json:"problem,omitempty"`
}

//
func newAnalysisReport(name string, a *analyze.Analysis) *AnalysisReport {

	ret := &AnalysisReport{
		Name:          name,
		Cylinders:     a.Cylinders(),
		Heads:         a.Heads(),
		Rates:         a.Rates(),
		MaxTrackBytes: a.MaxTrackBytes,
	}

	recs, err := a.Recommendations()
	if err != nil {
		ret.Problem = err.Error()
		return ret
	}
	for _, r := range recs {
		ret.Recommendations = append(ret.Recommendations, r.String())
	}
	return ret
}

//
func (r *AnalysisReport) String() string {

	ret := fmt.Sprintf(
		"\n%s\n  cylinders: %d\n  heads: %d\n  rates: %v\n  max track bytes: %d",
		r.Name, r.Cylinders, r.Heads, r.Rates, r.MaxTrackBytes)

	if r.Problem != "" {
		return ret + "\n  " + r.Problem
	}
	ret += "\n  possible drives:"
	for _, rec := range r.Recommendations {
		ret += "\n    " + rec
	}
	return ret
}
