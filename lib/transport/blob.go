// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

// BlobTransport reads archives from a gocloud.dev/blob bucket. Paths
// map to object keys with the leading "/" removed. Buckets always
// support range reads.
type BlobTransport struct {
	bucket *blob.Bucket
}

// NewBlob wraps an open bucket. The caller keeps ownership and closes
// it.
func NewBlob(bucket *blob.Bucket) *BlobTransport {
	return &BlobTransport{bucket: bucket}
}

// OpenBlob opens a bucket by URL ("file:///srv/stories",
// "mem://") and wraps it. Close the returned transport when done.
func OpenBlob(ctx context.Context, bucketURL string) (*BlobTransport, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", bucketURL, err)
	}
	return &BlobTransport{bucket: bucket}, nil
}

// Close closes the underlying bucket.
func (transport *BlobTransport) Close() error {
	return transport.bucket.Close()
}

// Probe reads the object attributes.
func (transport *BlobTransport) Probe(ctx context.Context, path string) (Probe, error) {
	attributes, err := transport.bucket.Attributes(ctx, blobKey(path))
	if err != nil {
		return Probe{}, blobError(path, err)
	}
	return Probe{Size: uint64(attributes.Size), SupportsRanges: true}, nil
}

// FetchRange reads one range with a range reader. An open-ended range
// reads to the end of the object.
func (transport *BlobTransport) FetchRange(ctx context.Context, path string, byteRange Range) ([]byte, error) {
	length := int64(-1)
	if !byteRange.OpenEnded {
		length = int64(byteRange.Length())
	}
	reader, err := transport.bucket.NewRangeReader(ctx, blobKey(path), int64(byteRange.Start), length, nil)
	if err != nil {
		return nil, blobError(path, err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, wrapError(ctx, "read", path, fmt.Errorf("%s: %w", byteRange, err))
	}
	return data, nil
}

// FetchWhole reads the entire object.
func (transport *BlobTransport) FetchWhole(ctx context.Context, path string) ([]byte, error) {
	data, err := transport.bucket.ReadAll(ctx, blobKey(path))
	if err != nil {
		return nil, blobError(path, err)
	}
	return data, nil
}

func blobKey(path string) string {
	return strings.TrimPrefix(NormalizePath(path), "/")
}

// blobError maps a missing object to the same *StatusError an HTTP
// server would produce so callers classify both transports alike. Other
// bucket failures become an *Error.
func blobError(path string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return &StatusError{StatusCode: http.StatusNotFound}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &Error{Op: "fetch", Path: path, Err: err}
}
