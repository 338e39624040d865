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
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// The subset of the rrdtool dump XML we care about. Row values appear
// oldest first, which matches our row numbering directly.
type dumpRrd struct {
	XMLName    struct{}  `xml:"rrd"`
	Version    string    `xml:"version"`
	Step       int64     `xml:"step"`
	LastUpdate int64     `xml:"lastupdate"`
	Ds         []dumpDs  `xml:"ds"`
	Rra        []dumpRra `xml:"rra"`
}

type dumpDs struct {
	Name string `xml:"name"`
	Type string `xml:"type"`
}

type dumpRra struct {
	Cf        string `xml:"cf"`
	PdpPerRow int64  `xml:"pdp_per_row"`
	Database  dumpDb `xml:"database"`
}

type dumpDb struct {
	Rows []dumpRow `xml:"row"`
}

type dumpRow struct {
	V []string `xml:"v"`
}

// ParseDump builds a File from the output of `rrdtool dump`. The
// binary RRD layout itself is not handled here; whatever produced the
// bytes is expected to have used rrdtool (or an equivalent) to render
// the portable XML form.
func ParseDump(data []byte) (*File, error) {
	var dump dumpRrd
	if err := xml.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("ParseDump: %v", err)
	}
	if dump.Step <= 0 {
		return nil, fmt.Errorf("ParseDump: invalid step: %d", dump.Step)
	}
	if len(dump.Ds) == 0 {
		return nil, fmt.Errorf("ParseDump: no data sources")
	}

	f := NewFile(time.Unix(dump.LastUpdate, 0), time.Duration(dump.Step)*time.Second)
	for _, ds := range dump.Ds {
		f.AddDataSource(strings.TrimSpace(ds.Name))
	}

	for n, r := range dump.Rra {
		if r.PdpPerRow <= 0 {
			return nil, fmt.Errorf("ParseDump: rra %d: invalid pdp_per_row: %d", n, r.PdpPerRow)
		}
		step := time.Duration(r.PdpPerRow*dump.Step) * time.Second
		rra := f.AddArchive(strings.TrimSpace(r.Cf), step, len(r.Database.Rows))
		for row, dr := range r.Database.Rows {
			for dsIdx, v := range dr.V {
				rra.SetValue(row, dsIdx, parseDumpValue(v))
			}
		}
	}

	return f, nil
}

// rrdtool dumps unknowns as "NaN", older versions as "U". Anything
// unparseable reads as unknown rather than failing the whole file.
func parseDumpValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "U" || s == "NaN" || s == "-NaN" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
