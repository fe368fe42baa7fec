// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"
)

// FetchMany fetches every range concurrently and returns the bodies in
// request order. If any fetch fails the remaining ones are cancelled
// and the first error to settle is returned. An empty batch returns an
// empty result without touching the transport.
func FetchMany(ctx context.Context, transport Transport, path string, ranges []Range) ([][]byte, error) {
	results := make([][]byte, len(ranges))
	if len(ranges) == 0 {
		return results, nil
	}
	group, groupContext := errgroup.WithContext(ctx)
	for i, byteRange := range ranges {
		group.Go(func() error {
			data, err := transport.FetchRange(groupContext, path, byteRange)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchCoalesced is FetchMany with nearby ranges merged first. Closed
// ranges whose gap to the previous merged span is at most maxGap bytes
// share one request; the merged bodies are sliced back into request
// order. Open-ended ranges are fetched on their own.
//
// A server that answers a merged range with fewer bytes than requested
// produces an error rather than short slices.
func FetchCoalesced(ctx context.Context, transport Transport, path string, ranges []Range, maxGap uint64) ([][]byte, error) {
	spans, assignments := coalesce(ranges, maxGap)
	if len(spans) == len(ranges) {
		return FetchMany(ctx, transport, path, ranges)
	}

	spanRanges := make([]Range, len(spans))
	for i, span := range spans {
		spanRanges[i] = span.Range
	}
	bodies, err := FetchMany(ctx, transport, path, spanRanges)
	if err != nil {
		return nil, err
	}

	results := make([][]byte, len(ranges))
	for i, byteRange := range ranges {
		spanIndex := assignments[i]
		span := spans[spanIndex]
		body := bodies[spanIndex]
		if span.OpenEnded {
			results[i] = body
			continue
		}
		start := byteRange.Start - span.Start
		end := start + byteRange.Length()
		if end > uint64(len(body)) {
			return nil, fmt.Errorf("coalesced fetch of %s returned %d bytes, need %d for %s",
				span.Range, len(body), end, byteRange)
		}
		results[i] = body[start:end:end]
	}
	return results, nil
}

type span struct {
	Range
}

// coalesce merges closed ranges sorted by start. It returns the merged
// spans and, for each input range, the index of the span that holds
// it.
func coalesce(ranges []Range, maxGap uint64) ([]span, []int) {
	order := make([]int, len(ranges))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case ranges[a].Start < ranges[b].Start:
			return -1
		case ranges[a].Start > ranges[b].Start:
			return 1
		default:
			return 0
		}
	})

	var spans []span
	assignments := make([]int, len(ranges))
	for _, index := range order {
		byteRange := ranges[index]
		if !byteRange.OpenEnded && len(spans) > 0 {
			last := &spans[len(spans)-1]
			if !last.OpenEnded && byteRange.Start <= last.End+1+maxGap {
				last.End = max(last.End, byteRange.End)
				assignments[index] = len(spans) - 1
				continue
			}
		}
		spans = append(spans, span{Range: byteRange})
		assignments[index] = len(spans) - 1
	}
	return spans, assignments
}
