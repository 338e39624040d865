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

// Package source provides the TimeSeriesSource capability and its
// variants: a direct source over a file already in hand, a remote
// source which downloads, parses and memoizes an RRD snapshot, and a
// proxy source which binds a fixed data source to a shared remote.
// The variants compose by delegation; many proxies can share one
// remote, and all of them observe the same cached or in-flight
// download.
package source

import (
	"context"

	"github.com/rrdview/rrdview/query"
	"github.com/rrdview/rrdview/rrd"
)

// TimeSeriesSource is anything a chart can be fed from.
type TimeSeriesSource interface {
	Query(ctx context.Context, p query.Params) (*query.Result, error)
	DataSourceNames(ctx context.Context) ([]string, error)
}

// Direct serves queries from a parsed file it was handed; there is
// nothing to fetch or invalidate.
type Direct struct {
	file *rrd.File
}

// NewDirect returns a source over an already-parsed file.
func NewDirect(f *rrd.File) *Direct {
	return &Direct{file: f}
}

func (d *Direct) Query(_ context.Context, p query.Params) (*query.Result, error) {
	return query.Query(d.file, p)
}

func (d *Direct) DataSourceNames(_ context.Context) ([]string, error) {
	return query.DataSourceNames(d.file), nil
}
