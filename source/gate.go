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
)

// Gate bounds the number of downloads in flight. Excess callers queue
// and are released strictly in arrival order, one per completion,
// whether the completed download succeeded or not.
type Gate struct {
	mu      sync.Mutex
	max     int
	running int
	waiters []chan struct{}
}

// NewGate returns a gate admitting at most max concurrent entries.
// max <= 0 means no limit.
func NewGate(max int) *Gate {
	return &Gate{max: max}
}

// Enter blocks until the caller may proceed or ctx is done. A nil
// error means Leave must eventually be called.
func (g *Gate) Enter(ctx context.Context) error {
	g.mu.Lock()
	if g.max <= 0 || g.running < g.max {
		g.running++
		g.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	g.waiters = append(g.waiters, ch)
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for n, w := range g.waiters {
			if w == ch {
				g.waiters = append(g.waiters[:n], g.waiters[n+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()
		// Released and cancelled at the same time; we did get the
		// slot, hand it back.
		g.Leave()
		return ctx.Err()
	}
}

// Leave releases a slot, admitting the oldest waiter if any.
func (g *Gate) Leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.waiters) > 0 {
		ch := g.waiters[0]
		g.waiters = g.waiters[1:]
		close(ch)
		return // the slot moves to the waiter, running is unchanged
	}
	if g.running > 0 {
		g.running--
	}
}
