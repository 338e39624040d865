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

// Package rrd describes a parsed Round-Robin Database file. This is a
// read-only model: a File is built once (by one of the loaders or by
// a test) and never modified afterwards, there is no code here for
// appending data points.
//
// Throughout documentation and code the following terms are used
// (sometimes as abbreviations, listed in parenthesis):
//
// Round-Robin Database (RRD): A fixed-size file of circular buffers
// of data points, e.g. as produced by collectd or rrdtool.
//
// Data Source (DS): One named numeric channel recorded in the
// file. Every archive stores a column per DS.
//
// Round-Robin Archive (RRA): One fixed-resolution, fixed-retention
// view of the data. An RRA has a step (seconds per row), a row count
// and a consolidation function. Only the most recent rowCount steps
// are retained.
//
// Consolidation Function (CF): The aggregation rule ("AVERAGE",
// "MIN", "MAX", "LAST") the RRA applied when downsampling raw
// input. CF names are compared case-sensitively, exactly as they
// appear in the file.
//
// Rows are indexed oldest first: row 0 covers the slot beginning at
// the archive's coverage floor, row rowCount-1 covers the slot just
// before the step-aligned last update. A cell with no data reads as
// NaN.
package rrd

import (
	"fmt"
	"math"
	"time"
)

// Recognized consolidation function names. Files may carry others
// (e.g. "HWPREDICT"); matching is always by exact string.
const (
	AVERAGE = "AVERAGE"
	MIN     = "MIN"
	MAX     = "MAX"
	LAST    = "LAST"
)

// ErrUnknownDataSource is wrapped by data source lookup failures.
var ErrUnknownDataSource = fmt.Errorf("unknown data source")

// DataSource identifies one named channel in a File.
type DataSource struct {
	name  string
	index int
}

// Name of the data source as recorded in the file.
func (ds *DataSource) Name() string { return ds.name }

// Index is the 0-based position of the data source in the file.
func (ds *DataSource) Index() int { return ds.index }

// Archive is a single RRA: a circular buffer of consolidated rows,
// one cell per data source per row.
type Archive struct {
	cf      string
	step    time.Duration
	rows    int
	dsCount int
	cells   []float64 // row-major, rows*dsCount, NaN when unknown
}

// CF returns the archive's consolidation function name.
func (rra *Archive) CF() string { return rra.cf }

// Step is the time covered by one row.
func (rra *Archive) Step() time.Duration { return rra.step }

// Rows is the number of rows the archive retains.
func (rra *Archive) Rows() int { return rra.rows }

// Span is the total duration the archive covers.
func (rra *Archive) Span() time.Duration { return rra.step * time.Duration(rra.rows) }

// Value returns the cell at (row, ds), NaN if the cell was never set
// or the coordinates are out of bounds. Row 0 is the oldest retained
// slot.
func (rra *Archive) Value(row, ds int) float64 {
	if row < 0 || row >= rra.rows || ds < 0 || ds >= rra.dsCount {
		return math.NaN()
	}
	return rra.cells[row*rra.dsCount+ds]
}

// SetValue sets the cell at (row, ds). It is meant to be used by
// loaders while a File is being built; out of bounds coordinates are
// ignored.
func (rra *Archive) SetValue(row, ds int, value float64) {
	if row < 0 || row >= rra.rows || ds < 0 || ds >= rra.dsCount {
		return
	}
	rra.cells[row*rra.dsCount+ds] = value
}

// File is a parsed RRD file snapshot.
type File struct {
	lastUpdate time.Time
	minStep    time.Duration
	dss        []*DataSource
	rras       []*Archive
}

// NewFile returns an empty File with the given last update time and
// minimum (native) step. Data sources must be added before archives.
func NewFile(lastUpdate time.Time, minStep time.Duration) *File {
	return &File{lastUpdate: lastUpdate, minStep: minStep}
}

// LastUpdate returns the time of the most recent sample ever written
// to the file.
func (f *File) LastUpdate() time.Time { return f.lastUpdate }

// MinStep returns the finest native sampling interval of the file.
func (f *File) MinStep() time.Duration { return f.minStep }

// DataSources returns the ordered data source list.
func (f *File) DataSources() []*DataSource { return f.dss }

// Archives returns the archive list in file order. By convention
// archives are ordered by ascending span, i.e. the first archive
// covering a requested range is the highest-resolution one, and the
// last archive has the longest history. This ordering is a property
// of the file, it is not re-verified here.
func (f *File) Archives() []*Archive { return f.rras }

// AddDataSource appends a data source and returns it. Must not be
// called once archives exist (archive cells are sized by DS count).
func (f *File) AddDataSource(name string) *DataSource {
	ds := &DataSource{name: name, index: len(f.dss)}
	f.dss = append(f.dss, ds)
	return ds
}

// AddArchive appends an archive with all cells unknown and returns it.
func (f *File) AddArchive(cf string, step time.Duration, rows int) *Archive {
	rra := &Archive{
		cf:      cf,
		step:    step,
		rows:    rows,
		dsCount: len(f.dss),
		cells:   make([]float64, rows*len(f.dss)),
	}
	for i := range rra.cells {
		rra.cells[i] = math.NaN()
	}
	f.rras = append(f.rras, rra)
	return rra
}

// DataSourceByName looks a data source up by its file name.
func (f *File) DataSourceByName(name string) (*DataSource, error) {
	for _, ds := range f.dss {
		if ds.name == name {
			return ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDataSource, name)
}

// DataSourceByIndex looks a data source up by its 0-based position.
func (f *File) DataSourceByIndex(index int) (*DataSource, error) {
	if index < 0 || index >= len(f.dss) {
		return nil, fmt.Errorf("%w: index %d (file has %d)", ErrUnknownDataSource, index, len(f.dss))
	}
	return f.dss[index], nil
}
