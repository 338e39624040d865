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
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Sources hands out Remote sources by URL, at most one live Remote
// per URL, so that every consumer of the same file shares its cache
// and its in-flight download. The set is LRU-bounded; an evicted
// Remote simply gets garbage collected once its charts let go of it.
type Sources struct {
	*lru.Cache
	mu    sync.Mutex
	fr    Fetcher
	parse ParseFunc
	gate  *Gate

	hits, misses int
}

// NewSources returns a Sources keeping up to cap Remotes. fr must not
// be nil; parse and gate are passed to each Remote and may be nil.
func NewSources(cap int, fr Fetcher, parse ParseFunc, gate *Gate) *Sources {
	if cap <= 0 {
		cap = 64
	}
	c, _ := lru.New(cap)
	return &Sources{Cache: c, fr: fr, parse: parse, gate: gate}
}

// Get returns the Remote for url, creating it on first use.
func (s *Sources) Get(url string) *Remote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.Cache.Get(url); ok {
		s.hits++
		return v.(*Remote)
	}
	s.misses++
	r := NewRemote(url, s.fr, s.parse, s.gate)
	s.Cache.Add(url, r)
	return r
}

// Stats reports cache hits and misses so far.
func (s *Sources) Stats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}
