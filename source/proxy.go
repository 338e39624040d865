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

	"github.com/rrdview/rrdview/query"
)

// Proxy pins a data source (and optionally a unit and consolidation
// function) onto a shared underlying source. Several proxies over the
// same Remote give several charts one download between them.
type Proxy struct {
	src  TimeSeriesSource
	ds   query.DSRef
	cf   string
	unit string
}

// NewProxy returns a proxy over src bound to ds. cf and unit are
// applied to every query unless the query sets its own.
func NewProxy(src TimeSeriesSource, ds query.DSRef, cf, unit string) *Proxy {
	return &Proxy{src: src, ds: ds, cf: cf, unit: unit}
}

func (x *Proxy) Query(ctx context.Context, p query.Params) (*query.Result, error) {
	p.DS = x.ds
	if p.CF == "" {
		p.CF = x.cf
	}
	if p.Unit == "" {
		p.Unit = x.unit
	}
	return x.src.Query(ctx, p)
}

func (x *Proxy) DataSourceNames(ctx context.Context) ([]string, error) {
	return x.src.DataSourceNames(ctx)
}
