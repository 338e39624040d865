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

// Package query resolves a time range against a parsed rrd.File: it
// picks the archive, computes the aligned row window and returns a
// regularly spaced series of (timestamp, value) samples together with
// the coverage bounds of the whole file.
//
// A query is a pure function over the immutable file snapshot. It
// performs no I/O, keeps no state between calls and is safe to call
// from any number of goroutines.
package query

import (
	"fmt"
	"time"

	"github.com/rrdview/rrdview/rrd"
)

// DSRef identifies a data source by name or by 0-based index. The
// zero value means index 0.
type DSRef struct {
	name   string
	index  int
	byName bool
}

// DSByName references a data source by its file name.
func DSByName(name string) DSRef { return DSRef{name: name, byName: true} }

// DSByIndex references a data source by its 0-based position.
func DSByIndex(index int) DSRef { return DSRef{index: index} }

func (r DSRef) String() string {
	if r.byName {
		return r.name
	}
	return fmt.Sprintf("#%d", r.index)
}

// Params are the inputs of a single query. Zero values select the
// documented defaults: End defaults to the file's last update
// quantized down to its minimum step, DS to index 0, CF to AVERAGE.
type Params struct {
	Start time.Time
	End   time.Time
	DS    DSRef
	CF    string
	Unit  string // passed through to the result unchanged
}

// Point is one chart sample: milliseconds since epoch and a value,
// NaN when the slot holds no data.
type Point struct {
	T int64
	V float64
}

// Result is what a query produces. Series is chronological and evenly
// spaced by the chosen archive's step (in milliseconds). FirstUpdated
// and LastUpdated bound the entire file's history as kept by its
// longest-span archive, regardless of which archive served the
// series; callers use them to clamp selectable ranges.
type Result struct {
	Label        string
	Series       []Point
	Unit         string
	FirstUpdated int64
	LastUpdated  int64
}

// RangeError reports a request whose start is not before its end
// (after defaulting).
type RangeError struct {
	Start, End time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid time range: start %v >= end %v", e.Start, e.End)
}

// UnsupportedConsolidationError reports a consolidation function no
// archive in the file uses.
type UnsupportedConsolidationError struct {
	CF string
}

func (e *UnsupportedConsolidationError) Error() string {
	return fmt.Sprintf("unrecognized consolidation function: %q", e.CF)
}

// ErrMisaligned signals the internal defensive check that computed
// row indexes came out non-integral. It indicates a bug in archive
// metadata or in this arithmetic and is not meant to be handled.
var ErrMisaligned = fmt.Errorf("row alignment invariant violated")

// Query resolves p against f per the rules above. On failure no
// partial result is returned; none of the failures are retryable.
func Query(f *rrd.File, p Params) (*Result, error) {
	lastUpdate := f.LastUpdate().Unix()
	minStep := int64(f.MinStep() / time.Second)

	// The window arrives in wall-clock time, all internal arithmetic
	// is in whole seconds.
	start := p.Start.UnixNano() / int64(time.Millisecond) / 1000
	var end int64
	if p.End.IsZero() {
		end = lastUpdate - lastUpdate%minStep
	} else {
		end = p.End.UnixNano() / int64(time.Millisecond) / 1000
	}
	if start >= end {
		return nil, &RangeError{Start: time.Unix(start, 0), End: time.Unix(end, 0)}
	}

	ds, err := resolveDS(f, p.DS)
	if err != nil {
		return nil, err
	}

	cf := p.CF
	if cf == "" {
		cf = rrd.AVERAGE
	}

	// Scan archives in file order, skipping CF mismatches, and take
	// the first one whose coverage floor reaches back to start. When
	// none does, the last matching archive (longest span, coarsest
	// resolution) remains selected as the fallback.
	var (
		chosen                    *rrd.Archive
		step, rows                int64
		firstRowTime, lastRowTime int64
	)
	for _, rra := range f.Archives() {
		if rra.CF() != cf {
			continue
		}
		chosen = rra
		step = int64(rra.Step() / time.Second)
		rows = int64(rra.Rows())
		lastRowTime = lastUpdate - lastUpdate%step
		firstRowTime = lastRowTime - rows*step
		if firstRowTime <= start {
			break
		}
	}
	if chosen == nil {
		return nil, &UnsupportedConsolidationError{CF: cf}
	}

	startRowTime := start - start%step
	if firstRowTime > startRowTime {
		startRowTime = firstRowTime
	}
	endRowTime := end - end%step
	if lastRowTime < endRowTime {
		endRowTime = lastRowTime
	}
	// A stale file can place the whole archive before start; collapse
	// the window instead of letting it invert.
	if startRowTime > endRowTime {
		startRowTime = endRowTime
	}

	if (lastRowTime-startRowTime)%step != 0 || (lastRowTime-endRowTime)%step != 0 {
		return nil, fmt.Errorf("%w: lastRowTime %d startRowTime %d endRowTime %d step %d",
			ErrMisaligned, lastRowTime, startRowTime, endRowTime, step)
	}
	startRowIdx := rows - (lastRowTime-startRowTime)/step
	endRowIdx := rows - (lastRowTime-endRowTime)/step

	series := make([]Point, 0, endRowIdx-startRowIdx)
	t := startRowTime
	for row := startRowIdx; row < endRowIdx; row++ {
		series = append(series, Point{T: t * 1000, V: chosen.Value(int(row), ds.Index())})
		t += step
	}

	firstUpdated, lastUpdated := CoverageBounds(f)

	return &Result{
		Label:        ds.Name(),
		Series:       series,
		Unit:         p.Unit,
		FirstUpdated: firstUpdated,
		LastUpdated:  lastUpdated,
	}, nil
}

// CoverageBounds returns the first and last selectable times of the
// file in milliseconds, computed from its last (longest-span)
// archive. This is about what the file retains overall, not about any
// one archive's contents.
func CoverageBounds(f *rrd.File) (firstUpdated, lastUpdated int64) {
	lastUpdate := f.LastUpdate().Unix()
	rras := f.Archives()
	if len(rras) == 0 {
		return lastUpdate * 1000, lastUpdate * 1000
	}
	longest := rras[len(rras)-1]
	step := int64(longest.Step() / time.Second)
	firstUpdated = (lastUpdate - int64(longest.Rows()-1)*step) * 1000
	return firstUpdated, lastUpdate * 1000
}

// DataSourceNames lists the file's data source names in file order.
func DataSourceNames(f *rrd.File) []string {
	dss := f.DataSources()
	names := make([]string, len(dss))
	for n, ds := range dss {
		names[n] = ds.Name()
	}
	return names
}

func resolveDS(f *rrd.File, ref DSRef) (*rrd.DataSource, error) {
	if ref.byName {
		return f.DataSourceByName(ref.name)
	}
	return f.DataSourceByIndex(ref.index)
}
