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

package daemon

import (
	"io/ioutil"
	"os"
	"testing"
	"time"
)

const testConfig = `
log-cycle-interval = "12h"
max-fetches = 4
fetch-rate = 2.5
cache-size = 16

[[source]]
name = "host one"
url = "http://host1/rrd.xml"
ds = "cpu"
unit = "%"

[[source]]
name = "local"
file = "dumps/local.xml"
`

func Test_ReadConfig(t *testing.T) {
	f, err := ioutil.TempFile("", "cfg")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())
	f.WriteString(testConfig)
	f.Close()

	if err := ReadConfig(""); err == nil {
		t.Errorf("ReadConfig with blank path should fail")
	}
	if err := ReadConfig(f.Name()); err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}

	if Cfg.LogCycle.Duration != 12*time.Hour {
		t.Errorf("log-cycle-interval: %v", Cfg.LogCycle.Duration)
	}
	if Cfg.MaxFetches != 4 || Cfg.FetchRate != 2.5 || Cfg.CacheSize != 16 {
		t.Errorf("fetch settings: %d %v %d", Cfg.MaxFetches, Cfg.FetchRate, Cfg.CacheSize)
	}
	if len(Cfg.Sources) != 2 || Cfg.Sources[0].Url != "http://host1/rrd.xml" {
		t.Errorf("sources: %+v", Cfg.Sources)
	}

	if err := processConfig(Cfg, "/tmp/wd"); err != nil {
		t.Fatalf("processConfig: %v", err)
	}
	if Cfg.HttpListenSpec != "0.0.0.0:8888" {
		t.Errorf("listen spec default: %q", Cfg.HttpListenSpec)
	}
	if Cfg.RuntimeStatInterval.Duration != time.Minute {
		t.Errorf("runtime-stat-interval default: %v", Cfg.RuntimeStatInterval.Duration)
	}
	if Cfg.Sources[0].Name != "host_one" {
		t.Errorf("name not sanitized: %q", Cfg.Sources[0].Name)
	}
	if Cfg.Sources[1].File != "/tmp/wd/dumps/local.xml" {
		t.Errorf("relative file not joined: %q", Cfg.Sources[1].File)
	}
}

func Test_processConfig_Errors(t *testing.T) {
	for _, c := range []struct {
		what string
		cfg  Config
	}{
		{"no sources", Config{}},
		{"no name", Config{Sources: []ConfigSource{{Url: "http://x/"}}}},
		{"duplicate name", Config{Sources: []ConfigSource{
			{Name: "a", Url: "http://x/"}, {Name: "a", Url: "http://y/"}}}},
		{"no backing", Config{Sources: []ConfigSource{{Name: "a"}}}},
		{"two backings", Config{Sources: []ConfigSource{
			{Name: "a", Url: "http://x/", File: "f.xml"}}}},
		{"db without db-file", Config{Sources: []ConfigSource{
			{Name: "a", DbConnect: "host=/tmp"}}}},
	} {
		if err := processConfig(&c.cfg, "/tmp/wd"); err == nil {
			t.Errorf("%s: expected error", c.what)
		}
	}
}
