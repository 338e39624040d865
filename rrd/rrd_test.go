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

package rrd

import (
	"errors"
	"math"
	"testing"
	"time"
)

func Test_NewFile(t *testing.T) {
	lu := time.Unix(1000, 0)
	f := NewFile(lu, 10*time.Second)
	if f.LastUpdate() != lu {
		t.Errorf("f.LastUpdate(): %v != %v", f.LastUpdate(), lu)
	}
	if f.MinStep() != 10*time.Second {
		t.Errorf("f.MinStep(): %v != 10s", f.MinStep())
	}
	if len(f.DataSources()) != 0 || len(f.Archives()) != 0 {
		t.Errorf("new file not empty")
	}
}

func Test_AddDataSource(t *testing.T) {
	f := NewFile(time.Unix(1000, 0), 10*time.Second)
	ds := f.AddDataSource("cpu")
	if ds.Name() != "cpu" || ds.Index() != 0 {
		t.Errorf("ds.Name(): %q, ds.Index(): %d", ds.Name(), ds.Index())
	}
	ds2 := f.AddDataSource("mem")
	if ds2.Index() != 1 {
		t.Errorf("ds2.Index(): %d, want 1", ds2.Index())
	}

	got, err := f.DataSourceByName("mem")
	if err != nil || got != ds2 {
		t.Errorf("DataSourceByName(mem): %v, %v", got, err)
	}
	got, err = f.DataSourceByIndex(0)
	if err != nil || got != ds {
		t.Errorf("DataSourceByIndex(0): %v, %v", got, err)
	}

	if _, err = f.DataSourceByName("nosuch"); !errors.Is(err, ErrUnknownDataSource) {
		t.Errorf("DataSourceByName(nosuch): err = %v, want ErrUnknownDataSource", err)
	}
	if _, err = f.DataSourceByIndex(2); !errors.Is(err, ErrUnknownDataSource) {
		t.Errorf("DataSourceByIndex(2): err = %v, want ErrUnknownDataSource", err)
	}
	if _, err = f.DataSourceByIndex(-1); !errors.Is(err, ErrUnknownDataSource) {
		t.Errorf("DataSourceByIndex(-1): err = %v, want ErrUnknownDataSource", err)
	}
}

func Test_Archive(t *testing.T) {
	f := NewFile(time.Unix(1000, 0), 10*time.Second)
	f.AddDataSource("cpu")
	f.AddDataSource("mem")

	rra := f.AddArchive(AVERAGE, 30*time.Second, 20)
	if rra.CF() != AVERAGE || rra.Step() != 30*time.Second || rra.Rows() != 20 {
		t.Errorf("rra.CF() != AVERAGE || rra.Step() != 30s || rra.Rows() != 20")
	}
	if rra.Span() != 600*time.Second {
		t.Errorf("rra.Span(): %v, want 600s", rra.Span())
	}

	// all cells start unknown
	if !math.IsNaN(rra.Value(0, 0)) || !math.IsNaN(rra.Value(19, 1)) {
		t.Errorf("fresh archive cells not NaN")
	}

	rra.SetValue(3, 1, 42.5)
	if rra.Value(3, 1) != 42.5 {
		t.Errorf("rra.Value(3, 1): %v, want 42.5", rra.Value(3, 1))
	}
	if !math.IsNaN(rra.Value(3, 0)) {
		t.Errorf("rra.Value(3, 0) affected by SetValue(3, 1)")
	}

	// out of bounds reads are NaN, out of bounds writes are dropped
	if !math.IsNaN(rra.Value(-1, 0)) || !math.IsNaN(rra.Value(20, 0)) || !math.IsNaN(rra.Value(0, 2)) {
		t.Errorf("out of bounds Value not NaN")
	}
	rra.SetValue(20, 0, 1)
	rra.SetValue(0, 2, 1)
	if !math.IsNaN(rra.Value(0, 0)) {
		t.Errorf("out of bounds SetValue wrote somewhere")
	}
}
