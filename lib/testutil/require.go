// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"
	"time"
)

// RequireReceive reads one value from ch within timeout, or fails the
// test naming what it was waiting for. A closed channel is a failure.
//
//	err := testutil.RequireReceive(t, serveDone, 5*time.Second, "server shutdown")
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, waitingFor string) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed without a value", waitingFor)
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: timed out after %v", waitingFor, timeout)
	}
	panic("unreachable")
}

// RequireClosed waits for a signal channel to close (or deliver) within
// timeout, or fails the test.
//
//	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "server ready")
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, waitingFor string) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: timed out after %v", waitingFor, timeout)
	}
}
