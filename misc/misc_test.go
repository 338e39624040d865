//
// Copyright 2015 Gregory Trubetskoy. All Rights Reserved.
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

package misc

import (
	"testing"
	"time"
)

func Test_SanitizeName(t *testing.T) {
	for _, c := range []struct{ in, out string }{
		{"host one", "host_one"},
		{"a/b", "a-b"},
		{"w@t?", "wt"},
		{"plain-name.ok", "plain-name.ok"},
	} {
		if got := SanitizeName(c.in); got != c.out {
			t.Errorf("SanitizeName(%q): %q, want %q", c.in, got, c.out)
		}
	}
}

func Test_BetterParseDuration(t *testing.T) {
	for _, c := range []struct {
		in  string
		out time.Duration
	}{
		{"90s", 90 * time.Second},
		{"10min", 10 * time.Minute},
		{"2hour", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"2w", 2 * 168 * time.Hour},
		{"1mon", 30 * 24 * time.Hour},
		{"1y", 8760 * time.Hour},
	} {
		d, err := BetterParseDuration(c.in)
		if err != nil {
			t.Errorf("BetterParseDuration(%q): %v", c.in, err)
		} else if d != c.out {
			t.Errorf("BetterParseDuration(%q): %v, want %v", c.in, d, c.out)
		}
	}
	if _, err := BetterParseDuration("bogus"); err == nil {
		t.Errorf("BetterParseDuration(bogus): expected error")
	}
}
