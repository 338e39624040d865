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
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rrdview/rrdview/query"
	"github.com/rrdview/rrdview/rrd"
)

// ParseFunc turns fetched bytes into a parsed file. rrd.ParseDump is
// the usual choice.
type ParseFunc func(data []byte) (*rrd.File, error)

// Remote serves queries from a file downloaded over a Fetcher. The
// parsed file is memoized; it is considered stale, and re-downloaded,
// once a query asks for an end time past the cached file's last
// update. Concurrent queries needing a download share a single flight
// rather than each downloading, and a failed download leaves nothing
// cached.
type Remote struct {
	url   string
	fr    Fetcher
	parse ParseFunc
	gate  *Gate // optional

	mu   sync.RWMutex
	file *rrd.File

	flight singleflight.Group
}

// NewRemote returns a remote source for url. parse may be nil, in
// which case rrd.ParseDump is used. gate may be nil.
func NewRemote(url string, fr Fetcher, parse ParseFunc, gate *Gate) *Remote {
	if parse == nil {
		parse = rrd.ParseDump
	}
	return &Remote{url: url, fr: fr, parse: parse, gate: gate}
}

// URL this source downloads from.
func (r *Remote) URL() string { return r.url }

func (r *Remote) Query(ctx context.Context, p query.Params) (*query.Result, error) {
	f, err := r.fileFor(ctx, p.End)
	if err != nil {
		return nil, err
	}
	return query.Query(f, p)
}

func (r *Remote) DataSourceNames(ctx context.Context) ([]string, error) {
	f, err := r.fileFor(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	return query.DataSourceNames(f), nil
}

// fileFor returns the cached file if it is still fresh for a query
// ending at end, otherwise downloads a new one. A zero end defaults
// to the file's own latest data and thus never invalidates an
// existing cache. All concurrent callers that miss coalesce onto one
// download.
func (r *Remote) fileFor(ctx context.Context, end time.Time) (*rrd.File, error) {
	r.mu.RLock()
	f := r.file
	r.mu.RUnlock()
	if f != nil && (end.IsZero() || !end.After(f.LastUpdate())) {
		return f, nil
	}

	v, err, _ := r.flight.Do(r.url, func() (interface{}, error) {
		// Someone else may have refreshed while we queued on the
		// flight; their file can already be fresh enough.
		r.mu.RLock()
		cur := r.file
		r.mu.RUnlock()
		if cur != nil && cur != f && (end.IsZero() || !end.After(cur.LastUpdate())) {
			return cur, nil
		}

		if r.gate != nil {
			if err := r.gate.Enter(ctx); err != nil {
				return nil, err
			}
			defer r.gate.Leave()
		}

		data, err := r.fr.Fetch(ctx, r.url)
		if err != nil {
			return nil, err
		}
		nf, err := r.parse(data)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.file = nf
		r.mu.Unlock()
		return nf, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*rrd.File), nil
}
