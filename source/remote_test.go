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
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rrdview/rrdview/query"
	"github.com/rrdview/rrdview/rrd"
)

// fakeFetcher hands out a last-update timestamp as the "file bytes";
// fakeParse turns it into a one-source file whose archive covers the
// 1000s before it.
type fakeFetcher struct {
	mu         sync.Mutex
	calls      int
	lastUpdate int64
	err        error
	block      chan struct{} // when set, Fetch waits on it
}

func (ff *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ff.mu.Lock()
	ff.calls++
	lu, err, block := ff.lastUpdate, ff.err, ff.block
	ff.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%d", lu)), nil
}

func (ff *fakeFetcher) callCount() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.calls
}

func fakeParse(data []byte) (*rrd.File, error) {
	lu, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil, err
	}
	f := rrd.NewFile(time.Unix(lu, 0), 10*time.Second)
	f.AddDataSource("in")
	f.AddArchive(rrd.AVERAGE, 10*time.Second, 100)
	return f, nil
}

func Test_Remote_CachesFile(t *testing.T) {
	ff := &fakeFetcher{lastUpdate: 1000}
	r := NewRemote("http://x/f.rrd", ff, fakeParse, nil)

	p := query.Params{Start: time.Unix(500, 0), End: time.Unix(900, 0)}
	if _, err := r.Query(context.Background(), p); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, err := r.Query(context.Background(), p); err != nil {
		t.Fatalf("Query: %v", err)
	}
	// a defaulted end also uses the cache
	if _, err := r.Query(context.Background(), query.Params{Start: time.Unix(500, 0)}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, err := r.DataSourceNames(context.Background()); err != nil {
		t.Fatalf("DataSourceNames: %v", err)
	}
	if ff.callCount() != 1 {
		t.Errorf("ff.calls: %d, want 1", ff.callCount())
	}
}

func Test_Remote_StaleInvalidation(t *testing.T) {
	ff := &fakeFetcher{lastUpdate: 1000}
	r := NewRemote("http://x/f.rrd", ff, fakeParse, nil)

	if _, err := r.Query(context.Background(), query.Params{Start: time.Unix(500, 0), End: time.Unix(900, 0)}); err != nil {
		t.Fatalf("Query: %v", err)
	}

	// asking past the cached last update forces a re-download, which
	// this time yields a newer file
	ff.mu.Lock()
	ff.lastUpdate = 2000
	ff.mu.Unlock()
	res, err := r.Query(context.Background(), query.Params{Start: time.Unix(500, 0), End: time.Unix(1500, 0)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ff.callCount() != 2 {
		t.Errorf("ff.calls: %d, want 2", ff.callCount())
	}
	if res.LastUpdated != 2000000 {
		t.Errorf("res.LastUpdated: %d, want 2000000", res.LastUpdated)
	}
}

func Test_Remote_CoalescesDownloads(t *testing.T) {
	block := make(chan struct{})
	ff := &fakeFetcher{lastUpdate: 1000, block: block}
	r := NewRemote("http://x/f.rrd", ff, fakeParse, nil)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = r.Query(context.Background(),
				query.Params{Start: time.Unix(500, 0), End: time.Unix(900, 0)})
		}(n)
	}

	// let the workers pile onto the single flight, then release it
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			t.Errorf("worker %d: %v", n, err)
		}
	}
	if got := ff.callCount(); got != 1 {
		t.Errorf("ff.calls: %d, want 1 (coalesced)", got)
	}
}

func Test_Remote_FailedDownloadNotCached(t *testing.T) {
	ff := &fakeFetcher{err: &TransportError{URL: "http://x/f.rrd", Status: 503}}
	r := NewRemote("http://x/f.rrd", ff, fakeParse, nil)

	p := query.Params{Start: time.Unix(500, 0), End: time.Unix(900, 0)}
	_, err := r.Query(context.Background(), p)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if te.Status != 503 {
		t.Errorf("te.Status: %d, want 503", te.Status)
	}

	// recovery requires a new fetch, not a poisoned cache
	ff.mu.Lock()
	ff.err = nil
	ff.mu.Unlock()
	if _, err := r.Query(context.Background(), p); err != nil {
		t.Fatalf("Query after recovery: %v", err)
	}
	if ff.callCount() != 2 {
		t.Errorf("ff.calls: %d, want 2", ff.callCount())
	}
}

func Test_Sources_SharedRemote(t *testing.T) {
	ff := &fakeFetcher{lastUpdate: 1000}
	srcs := NewSources(4, ff, fakeParse, nil)

	a := srcs.Get("http://x/f.rrd")
	b := srcs.Get("http://x/f.rrd")
	if a != b {
		t.Errorf("same URL produced distinct remotes")
	}
	if c := srcs.Get("http://x/other.rrd"); c == a {
		t.Errorf("distinct URLs share a remote")
	}
	hits, misses := srcs.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats(): hits %d misses %d, want 1 and 2", hits, misses)
	}
}
