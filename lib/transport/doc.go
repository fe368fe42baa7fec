// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport fetches byte ranges of archive resources.
//
// [Transport] is the network boundary of the archive reader: a probe
// that reports size and range support, a single-range fetch, and a
// whole-resource fetch. Two implementations are provided:
//
//   - [HTTPTransport] issues GET requests with Range headers against a
//     base URL. It is the production path: archives are published as
//     static files behind any server that honors Range.
//   - [BlobTransport] reads from a gocloud.dev/blob bucket (file://,
//     mem://). Buckets always support ranges.
//
// [FetchMany] runs a batch of range fetches concurrently and returns
// the results in request order; the first failure fails the batch.
// [FetchCoalesced] merges nearby ranges into fewer requests before
// fetching and slices the results back apart.
//
// [Instrument] wraps any Transport with Prometheus counters for
// requests and bytes, which is also how tests observe that a second
// load of a cached node makes no requests.
//
// Failures come in two types. A [*StatusError] is a response with a
// non-2xx status; an [*Error] is a fetch that got no usable response at
// all. Cancellation surfaces as the context's own error, never as an
// [*Error].
//
// There is no retry or backoff at this layer. A failed fetch fails the
// operation that needed it.
package transport
