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

// Package daemon assembles and runs the rrdview server: it reads the
// config, builds the configured chart sources and serves the chart
// HTTP API until told to stop.
package daemon

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/rrdview/rrdview/query"
	"github.com/rrdview/rrdview/rrd"
	"github.com/rrdview/rrdview/source"
)

var (
	logFile    *os.File
	cycleLogCh = make(chan int)
	quitting   bool
	stopCh     = make(chan struct{})
)

// Init is the daemon entry point, called from main. Not to be
// confused with init().
func Init(cfgPath string) {

	runtime.GOMAXPROCS(runtime.NumCPU())

	log.Printf("Rrdview starting.")

	if err := ReadConfig(cfgPath); err != nil {
		log.Fatal("Exiting.")
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	if err := processConfig(Cfg, wd); err != nil {
		log.Fatalf("Error in config file %s: %v", cfgPath, err)
	}

	savePid(Cfg.PidPath)

	if Cfg.LogPath != "" {
		logFileCycler(Cfg.LogPath, Cfg.LogCycle.Duration)
	}

	reg, err := buildSources(Cfg)
	if err != nil {
		log.Fatalf("Error building sources: %v", err)
	}

	go reportRuntime(Cfg.RuntimeStatInterval.Duration, stopCh)

	srv := startHttpServer(Cfg.HttpListenSpec, reg)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for {
		s := <-ch
		if s == syscall.SIGHUP {
			if Cfg.LogPath != "" {
				cycleLogCh <- 1
			}
			continue
		}
		log.Printf("Got signal: %v, shutting down.", s)
		break
	}

	quitting = true
	close(stopCh)
	srv.Close()
	os.Remove(Cfg.PidPath)
	log.Printf("All done, exiting.")
}

// registry maps configured source names to their (possibly proxied)
// sources. It satisfies the HTTP layer's SourceResolver.
type registry struct {
	srcs map[string]source.TimeSeriesSource
}

func (rg *registry) Resolve(name string) (source.TimeSeriesSource, error) {
	if s, ok := rg.srcs[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown source: %q", name)
}

func buildSources(cfg *Config) (*registry, error) {

	var gate *source.Gate
	if cfg.MaxFetches > 0 {
		gate = source.NewGate(cfg.MaxFetches)
	}
	fetcher := &source.HTTPFetcher{}
	if cfg.FetchRate > 0 {
		fetcher.Limiter = rate.NewLimiter(rate.Limit(cfg.FetchRate), 1)
	}
	remotes := source.NewSources(cfg.CacheSize, fetcher, nil, gate)

	rg := &registry{srcs: make(map[string]source.TimeSeriesSource)}
	for _, sc := range cfg.Sources {
		var (
			src source.TimeSeriesSource
			err error
		)
		switch {
		case sc.Url != "":
			// Shared through the LRU: sources configured with the
			// same URL, and any future lookups of it, use one remote.
			src = remotes.Get(sc.Url)
		case sc.File != "":
			src, err = dumpFileSource(sc.File)
		case sc.Whisper != "":
			var f *rrd.File
			f, err = source.LoadWhisper(sc.Whisper)
			if f != nil {
				src = source.NewDirect(f)
			}
		case sc.DbConnect != "":
			src, err = pgSource(sc.DbConnect, sc.DbPrefix, sc.DbFile)
		}
		if err != nil {
			return nil, fmt.Errorf("source %q: %v", sc.Name, err)
		}

		if sc.Ds != "" || sc.Cf != "" || sc.Unit != "" {
			src = source.NewProxy(src, dsRefFromConfig(sc.Ds), sc.Cf, sc.Unit)
		}
		rg.srcs[sc.Name] = src
		log.Printf("Configured source %q.", sc.Name)
	}
	return rg, nil
}

func dumpFileSource(path string) (source.TimeSeriesSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := rrd.ParseDump(data)
	if err != nil {
		return nil, err
	}
	return source.NewDirect(f), nil
}

func pgSource(connect, prefix, file string) (source.TimeSeriesSource, error) {
	pg, err := source.InitPg(connect, prefix)
	if err != nil {
		return nil, err
	}
	f, err := pg.LoadFile(file)
	if err != nil {
		return nil, err
	}
	return source.NewDirect(f), nil
}

func dsRefFromConfig(ds string) query.DSRef {
	if ds == "" {
		return query.DSRef{}
	}
	if idx, err := strconv.Atoi(ds); err == nil {
		return query.DSByIndex(idx)
	}
	return query.DSByName(ds)
}
