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

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kisielk/whisper-go/whisper"

	"github.com/rrdview/rrdview/rrd"
)

// LoadWhisper reads a graphite whisper file and presents it as an rrd
// snapshot with a single data source named after the file. Whisper
// archives are ordered finest to coarsest, same as our archive
// ordering precondition, and each maps to one archive tier with the
// file's aggregation method as the consolidation function.
func LoadWhisper(path string) (*rrd.File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	w, err := whisper.OpenWhisper(fd)
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("LoadWhisper: %s: %v", path, err)
	}
	defer w.Close()

	if len(w.Header.Archives) == 0 {
		return nil, fmt.Errorf("LoadWhisper: %s: no archives", path)
	}

	cf := whisperCF(uint32(w.Header.Metadata.AggregationMethod))
	fineStep := int64(w.Header.Archives[0].SecondsPerPoint)

	// Whisper timestamps mark the beginning of a slot; the newest
	// slot's end is the file's last update.
	var maxTs int64
	archives := make([][]whisper.Point, len(w.Header.Archives))
	for i := range w.Header.Archives {
		points, err := w.DumpArchive(i)
		if err != nil {
			return nil, fmt.Errorf("LoadWhisper: %s: archive %d: %v", path, i, err)
		}
		archives[i] = points
		for _, p := range points {
			if int64(p.Timestamp) > maxTs {
				maxTs = int64(p.Timestamp)
			}
		}
	}
	if maxTs == 0 {
		return nil, fmt.Errorf("LoadWhisper: %s: file holds no data", path)
	}
	lastUpdate := maxTs + fineStep

	name := strings.TrimSuffix(filepath.Base(path), ".wsp")
	f := rrd.NewFile(time.Unix(lastUpdate, 0), time.Duration(fineStep)*time.Second)
	f.AddDataSource(name)

	for i, info := range w.Header.Archives {
		step := int64(info.SecondsPerPoint)
		rows := int(info.Points)
		rra := f.AddArchive(cf, time.Duration(step)*time.Second, rows)

		lastRowTime := lastUpdate - lastUpdate%step
		for _, p := range archives[i] {
			if p.Timestamp == 0 { // unfilled slot
				continue
			}
			ts := int64(p.Timestamp)
			ts = ts - ts%step
			row := rows - int((lastRowTime-ts)/step)
			rra.SetValue(row, 0, p.Value) // out of range rows are dropped
		}
	}

	return f, nil
}

// The whisper aggregation method byte, per the format: 1 average,
// 2 sum, 3 last, 4 max, 5 min.
func whisperCF(method uint32) string {
	switch method {
	case 2:
		return "SUM"
	case 3:
		return rrd.LAST
	case 4:
		return rrd.MAX
	case 5:
		return rrd.MIN
	default:
		return rrd.AVERAGE
	}
}
