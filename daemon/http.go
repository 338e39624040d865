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

package daemon

import (
	"fmt"
	"log"
	"net/http"
	"time"

	h "github.com/rrdview/rrdview/http"
)

func startHttpServer(addr string, rg *registry) *http.Server {

	mux := http.NewServeMux()
	mux.HandleFunc("/chart/series", h.ChartSeriesHandler(rg))
	mux.HandleFunc("/chart/series/", h.ChartSeriesHandler(rg))
	mux.HandleFunc("/chart/ds", h.ChartDSHandler(rg))
	mux.HandleFunc("/chart/ds/", h.ChartDSHandler(rg))

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) { fmt.Fprintf(w, "OK\n") })

	server := &http.Server{
		Addr:           addr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 16}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	return server
}
