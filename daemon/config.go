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
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rrdview/rrdview/misc"
)

type Config struct { // Needs to be exported for TOML to work
	PidPath             string         `toml:"pid-file"`
	LogPath             string         `toml:"log-file"`
	LogCycle            duration       `toml:"log-cycle-interval"`
	HttpListenSpec      string         `toml:"http-listen-spec"`
	MaxFetches          int            `toml:"max-fetches"`
	FetchRate           float64        `toml:"fetch-rate"` // downloads per second, 0 = unlimited
	CacheSize           int            `toml:"cache-size"` // remote sources kept, LRU
	RuntimeStatInterval duration       `toml:"runtime-stat-interval"`
	Sources             []ConfigSource `toml:"source"`
}

type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = misc.BetterParseDuration(string(text))
	return err
}

// ConfigSource is one [[source]] block: a name the HTTP API exposes
// and exactly one backing (an RRD dump URL, an RRD dump file on disk,
// a whisper file, or a Postgres archive). ds/cf/unit optionally pin
// the source to one channel, proxy-style.
type ConfigSource struct {
	Name      string
	Url       string
	File      string
	Whisper   string
	DbConnect string `toml:"db-connect-string"`
	DbPrefix  string `toml:"db-prefix"`
	DbFile    string `toml:"db-file"`
	Unit      string
	Ds        string
	Cf        string
}

var Cfg *Config

// ReadConfig creates the Cfg variable from a TOML file.
func ReadConfig(cfgPath string) error {
	if cfgPath == "" {
		return fmt.Errorf("Config file not specified.")
	}
	Cfg = &Config{}
	if _, err := toml.DecodeFile(cfgPath, Cfg); err != nil {
		log.Printf("ReadConfig(): error reading config: %v", err)
		return err
	}
	return nil
}

func processConfig(c *Config, wd string) error {
	if c.HttpListenSpec == "" {
		c.HttpListenSpec = "0.0.0.0:8888"
	}
	log.Printf("HTTP protocol: will listen on %q.", c.HttpListenSpec)

	if c.PidPath == "" {
		c.PidPath = filepath.Join(wd, "rrdview.pid")
	} else if !filepath.IsAbs(c.PidPath) {
		c.PidPath = filepath.Join(wd, c.PidPath)
	}

	if c.LogPath != "" && !filepath.IsAbs(c.LogPath) {
		c.LogPath = filepath.Join(wd, c.LogPath)
	}
	if c.LogCycle.Duration == 0 {
		c.LogCycle.Duration = 24 * time.Hour
	}
	if c.RuntimeStatInterval.Duration == 0 {
		c.RuntimeStatInterval.Duration = time.Minute
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("no [[source]] blocks defined")
	}
	seen := make(map[string]bool)
	for n := range c.Sources {
		s := &c.Sources[n]
		s.Name = misc.SanitizeName(s.Name)
		if s.Name == "" {
			return fmt.Errorf("source %d: name required", n)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q: duplicate name", s.Name)
		}
		seen[s.Name] = true

		backings := 0
		for _, b := range []string{s.Url, s.File, s.Whisper, s.DbConnect} {
			if b != "" {
				backings++
			}
		}
		if backings != 1 {
			return fmt.Errorf("source %q: exactly one of url, file, whisper, db-connect-string required", s.Name)
		}
		if s.DbConnect != "" && s.DbFile == "" {
			return fmt.Errorf("source %q: db-file required with db-connect-string", s.Name)
		}
		if s.File != "" && !filepath.IsAbs(s.File) {
			s.File = filepath.Join(wd, s.File)
		}
		if s.Whisper != "" && !filepath.IsAbs(s.Whisper) {
			s.Whisper = filepath.Join(wd, s.Whisper)
		}
	}

	return nil
}

func savePid(pidPath string) {
	f, err := os.Create(pidPath)
	if err != nil {
		log.Fatalf("Unable to create pid file '%s': (%v)", pidPath, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	log.Printf("Pid saved in %s.", pidPath)
}
