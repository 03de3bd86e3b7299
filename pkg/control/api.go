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

// Package control exposes a repository of IMD images through an HTTP API.
// All endpoints are read-only over the stream codecs; nothing is held in
// memory between requests.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/imdtools/imdkit/pkg/imd"
	"github.com/imdtools/imdkit/pkg/imd/analyze"
	"github.com/imdtools/imdkit/pkg/imd/check"
	"github.com/imdtools/imdkit/pkg/repo"
)

//
type APIServer interface {
	Serve() error
	Stop() error
}

//
func NewAPIServer(addr, repository string) APIServer {
	return &api{address: addr, repository: repository}
}

//
type api struct {
	address    string
	repository string
	server     *http.Server
}

//
func (a *api) Serve() error {

	router := mux.NewRouter().StrictSlash(true)

	addRoute(router, "ls", "GET", "/images", a.list)
	addRoute(router, "info", "GET", "/images/{name}/info", a.info)
	addRoute(router, "check", "GET", "/images/{name}/check", a.check)
	addRoute(router, "analysis", "GET", "/images/{name}/analysis", a.analysis)
	addRoute(router, "comment", "GET", "/images/{name}/comment", a.comment)

	addr := a.address
	if len(strings.Split(addr, ":")) < 2 {
		addr = fmt.Sprintf("%s:8774", a.address)
	}

	log.Infof("imdkit API starts listening on %s", addr)
	a.server = &http.Server{Addr: addr, Handler: router}

	err := a.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

//
func (a *api) Stop() error {
	if a.server != nil {
		log.Info("API server stopping...")
		err := a.server.Shutdown(context.Background())
		a.server = nil
		return err
	}
	return nil
}

//
func addRoute(r *mux.Router, name, method, pattern string,
	handler http.HandlerFunc) {
	r.Methods(method).
		Path(pattern).
		Name(name).
		Handler(requestLogger(handler, name))
}

//
func requestLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		log.WithFields(log.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"path":   r.RequestURI,
		}).Debugf("API BEGIN | %s", name)

		start := time.Now()
		inner.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.RequestURI,
			"duration": time.Since(start),
		}).Debugf("API END   | %s", name)
	})
}

//
func (a *api) list(w http.ResponseWriter, req *http.Request) {

	names, err := repo.List(a.repository)
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}

	list := &ImageList{Images: names}
	if wantsJSON(req) {
		sendJSONReply(list, http.StatusOK, w)
	} else {
		sendReply([]byte(list.String()), http.StatusOK, w)
	}
}

//
func (a *api) info(w http.ResponseWriter, req *http.Request) {

	name, in := a.openImage(w, req)
	if in == nil {
		return
	}
	defer in.Close()

	hdr, err := imd.ReadHeader(in)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}
	if handleError(imd.SkipComment(in),
		http.StatusUnprocessableEntity, w) {
		return
	}

	ret := &ImageInfo{Name: name, Header: hdr.Line}
	maxCyl, maxHead := -1, -1

	for {
		t, err := imd.ReadTrackHeader(in, true)
		if handleError(err, http.StatusUnprocessableEntity, w) {
			return
		}
		if t == nil {
			break
		}
		ret.Tracks++
		if int(t.Cyl) > maxCyl {
			maxCyl = int(t.Cyl)
		}
		if int(t.Head) > maxHead {
			maxHead = int(t.Head)
		}
		if r := imd.RateOf(t.Mode); r > 0 && !containsInt(ret.Rates, r) {
			ret.Rates = append(ret.Rates, r)
		}
	}
	ret.Cylinders = maxCyl + 1
	ret.Heads = maxHead + 1

	if wantsJSON(req) {
		sendJSONReply(ret, http.StatusOK, w)
	} else {
		sendReply([]byte(ret.String()), http.StatusOK, w)
	}
}

//
func (a *api) check(w http.ResponseWriter, req *http.Request) {

	name, in := a.openImage(w, req)
	if in == nil {
		return
	}
	defer in.Close()

	opts := check.NewOptions()
	res, err := check.File(in, opts)
	if check.IsFatal(err) {
		handleError(err, http.StatusInternalServerError, w)
		return
	}

	report := newCheckReport(name, res, opts.ErrorMask)
	if wantsJSON(req) {
		sendJSONReply(report, http.StatusOK, w)
	} else {
		sendReply([]byte(report.String()), http.StatusOK, w)
	}
}

//
func (a *api) analysis(w http.ResponseWriter, req *http.Request) {

	name, in := a.openImage(w, req)
	if in == nil {
		return
	}
	defer in.Close()

	res, err := analyze.File(in)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	report := newAnalysisReport(name, res)
	if wantsJSON(req) {
		sendJSONReply(report, http.StatusOK, w)
	} else {
		sendReply([]byte(report.String()), http.StatusOK, w)
	}
}

//
func (a *api) comment(w http.ResponseWriter, req *http.Request) {

	_, in := a.openImage(w, req)
	if in == nil {
		return
	}
	defer in.Close()

	if _, err := imd.ReadHeader(in); handleError(
		err, http.StatusUnprocessableEntity, w) {
		return
	}
	comment, err := imd.ReadComment(in)
	if handleError(err, http.StatusUnprocessableEntity, w) {
		return
	}

	sendReply(comment, http.StatusOK, w)
}

//
func (a *api) openImage(w http.ResponseWriter,
	req *http.Request) (string, io.ReadCloser) {

	name := mux.Vars(req)["name"]
	in, err := repo.Resolve(name, a.repository)
	if err != nil {
		handleError(fmt.Errorf("cannot open image '%s': %v", name, err),
			http.StatusNotFound, w)
		return name, nil
	}
	return name, in
}

//
func containsInt(list []int, v int) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

//
func setHeaders(h http.Header, json bool) {
	if json {
		h.Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		h.Set("Content-Type", "text/plain; charset=UTF-8")
	}
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)

	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(fmt.Sprintf("%v\n", e))); err != nil {
		log.Errorf("problem writing error: %v", err)
	}

	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), false)
	w.WriteHeader(statusCode)
	if _, err := fmt.Fprintf(w, "%s\n", body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {
	setHeaders(w.Header(), true)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Errorf("problem writing error: %v", err)
	}
}

//
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json") ||
		req.Header.Get("Content-Type") == "application/json"
}
