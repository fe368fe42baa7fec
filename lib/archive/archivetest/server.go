// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archivetest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Server serves archive bytes over HTTP and records the Range header
// of every request it receives.
type Server struct {
	*httptest.Server

	mutex  sync.Mutex
	ranges []string
}

// ServerOption configures NewServer.
type ServerOption func(*serverOptions)

type serverOptions struct {
	noRanges bool
	status   int
}

// WithoutRanges makes the server ignore Range headers and always
// answer 200 with the whole file.
func WithoutRanges() ServerOption {
	return func(options *serverOptions) { options.noRanges = true }
}

// WithStatus makes every request fail with status.
func WithStatus(status int) ServerOption {
	return func(options *serverOptions) { options.status = status }
}

// NewServer serves files (path to bytes) until the test ends. Unknown
// paths are 404.
func NewServer(t *testing.T, files map[string][]byte, opts ...ServerOption) *Server {
	t.Helper()
	var options serverOptions
	for _, opt := range opts {
		opt(&options)
	}

	server := &Server{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.mutex.Lock()
		server.ranges = append(server.ranges, request.Header.Get("Range"))
		server.mutex.Unlock()

		if options.status != 0 {
			http.Error(writer, http.StatusText(options.status), options.status)
			return
		}
		data, ok := files[request.URL.Path]
		if !ok {
			http.NotFound(writer, request)
			return
		}
		if options.noRanges {
			writer.Header().Set("Content-Length", strconv.Itoa(len(data)))
			writer.WriteHeader(http.StatusOK)
			writer.Write(data)
			return
		}
		http.ServeContent(writer, request, request.URL.Path, time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server
}

// Ranges returns the Range header of every request so far, in arrival
// order. Requests without a Range header record "".
func (server *Server) Ranges() []string {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]string(nil), server.ranges...)
}

// Requests returns the number of requests so far.
func (server *Server) Requests() int {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return len(server.ranges)
}

// Reset forgets recorded requests.
func (server *Server) Reset() {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.ranges = nil
}
