//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package http serves resolved chart data over HTTP. The series
// endpoint emits one Flot-style series object per request: the data
// array is [millisecond, value] pairs with null standing in for
// unknown slots, directly consumable by any charting library with a
// millisecond x axis.
package http

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rrdview/rrdview/misc"
	"github.com/rrdview/rrdview/query"
	"github.com/rrdview/rrdview/rrd"
	"github.com/rrdview/rrdview/source"
)

// SourceResolver maps the ?source= form value to a TimeSeriesSource.
type SourceResolver interface {
	Resolve(name string) (source.TimeSeriesSource, error)
}

// ChartSeriesHandler serves one series resolved from a named source:
//
//	GET /chart/series?source=NAME&ds=&cf=&start=&end=&unit=
//
// start/end accept unix milliseconds, "now", or relative forms like
// "-1h". ds is a data source name, or an index when numeric.
func ChartSeriesHandler(srcs SourceResolver) http.HandlerFunc {
	return makeGzipHandler(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			started := time.Now()
			src, err := srcs.Resolve(r.FormValue("source"))
			if err != nil {
				log.Printf("ChartSeriesHandler: (source) %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			start, err := parseTime(r.FormValue("start"))
			if err != nil {
				log.Printf("ChartSeriesHandler: (start) %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if start == nil {
				tmp := time.Now().Add(-time.Hour)
				start = &tmp
			}
			end, err := parseTime(r.FormValue("end"))
			if err != nil {
				log.Printf("ChartSeriesHandler: (end) %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			p := query.Params{
				Start: *start,
				DS:    parseDS(r.FormValue("ds")),
				CF:    r.FormValue("cf"),
				Unit:  r.FormValue("unit"),
			}
			if end != nil {
				p.End = *end
			}

			res, err := src.Query(r.Context(), p)
			if err != nil {
				log.Printf("ChartSeriesHandler: %v", err)
				http.Error(w, err.Error(), statusFor(err))
				return
			}

			writeSeries(w, res)
			log.Printf("ChartSeriesHandler: %d points in %v", len(res.Series), time.Now().Sub(started))
		},
	)
}

// ChartDSHandler lists the data source names of a named source as a
// JSON array, for building selection forms.
func ChartDSHandler(srcs SourceResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		src, err := srcs.Resolve(r.FormValue("source"))
		if err != nil {
			log.Printf("ChartDSHandler: (source) %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		names, err := src.DataSourceNames(r.Context())
		if err != nil {
			log.Printf("ChartDSHandler: %v", err)
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		fmt.Fprintf(w, "[")
		for n, name := range names {
			if n > 0 {
				fmt.Fprintf(w, ",")
			}
			fmt.Fprintf(w, "%q", name)
		}
		fmt.Fprintf(w, "]\n")
	}
}

func writeSeries(w io.Writer, res *query.Result) {
	fmt.Fprintf(w, `{"label": %q, "unit": %q, "firstUpdated": %d, "lastUpdated": %d, "data": [`,
		res.Label, res.Unit, res.FirstUpdated, res.LastUpdated)
	for n, pt := range res.Series {
		if n > 0 {
			fmt.Fprintf(w, ",")
		}
		if math.IsNaN(pt.V) || math.IsInf(pt.V, 0) {
			fmt.Fprintf(w, "[%d, null]", pt.T)
		} else {
			fmt.Fprintf(w, "[%d, %v]", pt.T, pt.V)
		}
	}
	fmt.Fprintf(w, "]}\n")
}

// Resolver failures are the caller's fault, transport failures are
// the remote's, anything else is ours.
func statusFor(err error) int {
	var (
		rng *query.RangeError
		cfe *query.UnsupportedConsolidationError
		te  *source.TransportError
	)
	switch {
	case errors.As(err, &rng), errors.As(err, &cfe), errors.Is(err, rrd.ErrUnknownDataSource):
		return http.StatusBadRequest
	case errors.As(err, &te):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// A numeric ds form value is an index, anything else a name, nothing
// at all defaults to index 0.
func parseDS(s string) query.DSRef {
	if s == "" {
		return query.DSRef{}
	}
	if i, err := strconv.Atoi(s); err == nil {
		return query.DSByIndex(i)
	}
	return query.DSByName(s)
}

func parseTime(s string) (*time.Time, error) {

	if len(s) == 0 {
		return nil, nil
	}

	if s[0] == '-' { // relative
		if dur, err := misc.BetterParseDuration(s[1:len(s)]); err == nil {
			t := time.Now().Add(-dur)
			return &t, nil
		} else {
			return nil, fmt.Errorf("parseTime(): Error parsing relative time %q: %v", s, err)
		}
	} else { // absolute
		if s == "now" {
			t := time.Now()
			return &t, nil
		} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := time.Unix(i/1000, i%1000*int64(time.Millisecond))
			return &t, nil
		} else {
			return nil, fmt.Errorf("parseTime(): Error parsing absolute time %q: %v", s, err)
		}
	}
}

type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}

func makeGzipHandler(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			fn(w, r)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		defer gz.Close()
		gzr := gzipResponseWriter{Writer: gz, ResponseWriter: w}
		fn(gzr, r)
	}
}
