// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bureau-foundation/cyoa/lib/netutil"
)

// HTTPTransport fetches resources from an HTTP server. Paths are
// appended to the base URL.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTP returns a transport rooted at baseURL (for example
// "https://stories.example.org"). A nil client uses
// http.DefaultClient. No timeout is imposed; deadlines come from the
// request context.
func NewHTTP(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// URL returns the absolute URL of path.
func (transport *HTTPTransport) URL(path string) string {
	return transport.baseURL + NormalizePath(path)
}

// Probe requests bytes=0-0. A 206 response means ranges are honored
// and the size is the total from Content-Range; any other success
// status means they are not and the size comes from Content-Length.
func (transport *HTTPTransport) Probe(ctx context.Context, path string) (Probe, error) {
	response, err := transport.get(ctx, path, "bytes=0-0")
	if err != nil {
		return Probe{}, err
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusPartialContent {
		size, err := parseContentRangeTotal(response.Header.Get("Content-Range"))
		if err != nil {
			return Probe{}, &Error{Op: "probe", Path: path, Err: err}
		}
		return Probe{Size: size, SupportsRanges: true}, nil
	}

	if response.ContentLength < 0 {
		return Probe{}, &Error{Op: "probe", Path: path, Err: errors.New("missing Content-Length")}
	}
	return Probe{Size: uint64(response.ContentLength)}, nil
}

// FetchRange issues one range request. Any 2xx response is accepted
// as-is, including a 200 carrying the whole resource.
func (transport *HTTPTransport) FetchRange(ctx context.Context, path string, byteRange Range) ([]byte, error) {
	response, err := transport.get(ctx, path, byteRange.Header())
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, wrapError(ctx, "read", path, fmt.Errorf("%s: %w", byteRange, err))
	}
	return data, nil
}

// FetchWhole issues an unconditioned GET.
func (transport *HTTPTransport) FetchWhole(ctx context.Context, path string) ([]byte, error) {
	response, err := transport.get(ctx, path, "")
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, wrapError(ctx, "read", path, err)
	}
	return data, nil
}

// get sends a GET with an optional Range header. A request that gets
// no response is an *Error and a non-2xx response is a *StatusError.
// On success the caller owns the body.
func (transport *HTTPTransport) get(ctx context.Context, path, rangeHeader string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, transport.URL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	if rangeHeader != "" {
		request.Header.Set("Range", rangeHeader)
	}
	response, err := transport.client.Do(request)
	if err != nil {
		return nil, wrapError(ctx, "fetch", path, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		body := netutil.ErrorBody(response.Body)
		response.Body.Close()
		return nil, &StatusError{StatusCode: response.StatusCode, Body: body}
	}
	return response, nil
}

// parseContentRangeTotal extracts the complete length from a
// Content-Range value such as "bytes 0-0/1234".
func parseContentRangeTotal(value string) (uint64, error) {
	if value == "" {
		return 0, errors.New("missing Content-Range")
	}
	_, total, found := strings.Cut(value, "/")
	if !found {
		return 0, fmt.Errorf("bad Content-Range %q", value)
	}
	size, err := strconv.ParseUint(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad Content-Range %q", value)
	}
	return size, nil
}
