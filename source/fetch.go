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
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher retrieves raw RRD bytes for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TransportError is a failed retrieval: non-2xx status or a network
// error. It is the only retryable error kind in this package, and the
// retrying (if any) is up to the caller.
type TransportError struct {
	URL    string
	Status int   // 0 when the request never completed
	Err    error // underlying error, if any
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPFetcher fetches over HTTP. A 2xx body is a success no matter
// what content type the server declared; some RRD exporters label the
// body as an error document while still delivering valid bytes.
type HTTPFetcher struct {
	Client  *http.Client  // nil means http.DefaultClient
	Limiter *rate.Limiter // nil means unlimited
}

func (hf *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if hf.Limiter != nil {
		if err := hf.Limiter.Wait(ctx); err != nil {
			return nil, &TransportError{URL: url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	client := hf.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: url, Status: resp.StatusCode}
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Status: resp.StatusCode, Err: err}
	}
	log.Printf("Fetch: %s: %d bytes in %v", url, len(body), time.Now().Sub(start))
	return body, nil
}
