// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds how long [ArchiveServer.Serve] waits
// for in-flight downloads after its context ends.
const DefaultShutdownTimeout = 10 * time.Second

// ArchiveServer serves the archives under a directory read-only. It is
// an http.Handler as well as a listener owner, so tests can drive it
// with httptest without binding a port.
type ArchiveServer struct {
	address         string
	files           http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound; addr is set first.
	ready chan struct{}
	addr  net.Addr

	requests atomic.Uint64
	bytes    atomic.Uint64
}

// ArchiveServerConfig configures an [ArchiveServer].
type ArchiveServerConfig struct {
	// Address is the TCP listen address ("127.0.0.1:8080", or port 0
	// for an ephemeral port). Required.
	Address string

	// Root holds the archives. Request paths are resolved against it.
	// Required.
	Root fs.FS

	// ShutdownTimeout bounds graceful shutdown. Zero means
	// DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger receives one info line per request. Required.
	Logger *slog.Logger
}

// ServerStats counts what an [ArchiveServer] has served.
type ServerStats struct {
	Requests uint64 `json:"requests"`
	Bytes    uint64 `json:"bytes"`
}

// NewArchiveServer validates config and returns a server ready to
// [ArchiveServer.Serve].
func NewArchiveServer(config ArchiveServerConfig) (*ArchiveServer, error) {
	switch {
	case config.Address == "":
		return nil, errors.New("archive server: address is required")
	case config.Root == nil:
		return nil, errors.New("archive server: root is required")
	case config.Logger == nil:
		return nil, errors.New("archive server: logger is required")
	}
	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = DefaultShutdownTimeout
	}
	return &ArchiveServer{
		address:         config.Address,
		files:           http.FileServerFS(config.Root),
		logger:          config.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}, nil
}

// Ready is closed once the listener is bound.
func (archiveServer *ArchiveServer) Ready() <-chan struct{} {
	return archiveServer.ready
}

// Addr is the bound address. It is nil until Ready is closed.
func (archiveServer *ArchiveServer) Addr() net.Addr {
	return archiveServer.addr
}

// Stats returns the number of requests handled and body bytes
// written so far.
func (archiveServer *ArchiveServer) Stats() ServerStats {
	return ServerStats{
		Requests: archiveServer.requests.Load(),
		Bytes:    archiveServer.bytes.Load(),
	}
}

// Serve binds the listener and serves until ctx ends, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (archiveServer *ArchiveServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", archiveServer.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", archiveServer.address, err)
	}
	archiveServer.addr = listener.Addr()
	close(archiveServer.ready)

	server := &http.Server{
		Handler: archiveServer,
		// Range reads are small, but a reader without range support
		// downloads the whole archive in one response.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	archiveServer.logger.Info("http server listening", "address", archiveServer.addr.String())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), archiveServer.shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		archiveServer.logger.Error("http server failed", "error", err)
		return err
	}

	stats := archiveServer.Stats()
	archiveServer.logger.Info("http server stopped",
		"requests", stats.Requests,
		"bytes", stats.Bytes,
	)
	return nil
}

// ServeHTTP answers GET and HEAD from the root directory. Ranges,
// conditional requests, and 416 for unsatisfiable ranges come from
// http.ServeContent. Every request is logged with its Range header,
// the response status, and the bytes written.
func (archiveServer *ArchiveServer) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	started := time.Now()
	recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

	if request.Method == http.MethodGet || request.Method == http.MethodHead {
		archiveServer.files.ServeHTTP(recorder, request)
	} else {
		recorder.Header().Set("Allow", "GET, HEAD")
		http.Error(recorder, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}

	archiveServer.requests.Add(1)
	archiveServer.bytes.Add(uint64(recorder.written))
	archiveServer.logger.Info("request",
		"method", request.Method,
		"path", request.URL.Path,
		"range", request.Header.Get("Range"),
		"status", recorder.status,
		"bytes", recorder.written,
		"elapsed", time.Since(started),
	)
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (recorder *statusRecorder) WriteHeader(status int) {
	if !recorder.wroteHeader {
		recorder.status = status
		recorder.wroteHeader = true
	}
	recorder.ResponseWriter.WriteHeader(status)
}

func (recorder *statusRecorder) Write(data []byte) (int, error) {
	recorder.wroteHeader = true
	written, err := recorder.ResponseWriter.Write(data)
	recorder.written += int64(written)
	return written, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (recorder *statusRecorder) Unwrap() http.ResponseWriter {
	return recorder.ResponseWriter
}
