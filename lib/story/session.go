// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/cyoa/lib/archive"
)

// NodeLoader loads node views by index position. *archive.Archive
// satisfies it.
type NodeLoader interface {
	LoadNode(ctx context.Context, position int) (*archive.NodeView, error)
	RootPosition(ctx context.Context) (int, error)

	// Fingerprint identifies the archive the positions refer to.
	Fingerprint() string
}

var (
	// ErrNotStarted is returned by operations that need a current
	// node before Start or Restore has succeeded.
	ErrNotStarted = errors.New("session not started")

	// ErrAtStart is returned by Back on the first node of the path.
	ErrAtStart = errors.New("no earlier node")
)

// ChoiceError reports a choice index outside the current node's
// edges.
type ChoiceError struct {
	Index     int
	Available int
}

func (err *ChoiceError) Error() string {
	return fmt.Sprintf("choice %d out of range (node has %d choices)", err.Index, err.Available)
}

// Stats summarizes a session.
type Stats struct {
	// Choices counts edges followed. Back does not undo it.
	Choices int `json:"choices"`

	// Backtracks counts successful Back calls.
	Backtracks int `json:"backtracks"`

	// DistinctNodes is the number of different positions visited.
	DistinctNodes int `json:"distinct_nodes"`

	// Visits counts arrivals at each position, by Start or Choose.
	Visits map[int]int `json:"visits"`
}

// Session is one reader's path through an archive. All methods are
// safe for concurrent use; operations that change the path are
// serialized.
type Session struct {
	loader NodeLoader
	logger *slog.Logger

	mutex      sync.Mutex
	views      map[int]*archive.NodeView
	path       []int
	visits     map[int]int
	choices    int
	backtracks int
}

// NewSession returns an unstarted session over loader. A nil logger
// discards output.
func NewSession(loader NodeLoader, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		loader: loader,
		logger: logger,
		views:  make(map[int]*archive.NodeView),
		visits: make(map[int]int),
	}
}

// Start resets the path to the archive's root node and returns its
// view. Memoized views survive the reset.
func (session *Session) Start(ctx context.Context) (*archive.NodeView, error) {
	root, err := session.loader.RootPosition(ctx)
	if err != nil {
		return nil, err
	}

	session.mutex.Lock()
	defer session.mutex.Unlock()

	view, err := session.view(ctx, root)
	if err != nil {
		return nil, err
	}
	session.path = []int{root}
	session.visits = map[int]int{root: 1}
	session.choices = 0
	session.backtracks = 0
	session.logger.Debug("session started", "root", root)
	return view, nil
}

// Choose follows edge index of the current node and returns the
// destination view. On error the path is unchanged.
func (session *Session) Choose(ctx context.Context, index int) (*archive.NodeView, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	current, err := session.current()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(current.Edges) {
		return nil, &ChoiceError{Index: index, Available: len(current.Edges)}
	}

	destination := current.Edges[index].Destination
	view, err := session.view(ctx, destination)
	if err != nil {
		return nil, err
	}
	session.path = append(session.path, destination)
	session.visits[destination]++
	session.choices++
	session.logger.Debug("choice followed",
		"choice", index,
		"label", current.Edges[index].Label,
		"destination", destination,
	)
	return view, nil
}

// Back returns to the previous node on the path.
func (session *Session) Back() (*archive.NodeView, error) {
	session.mutex.Lock()
	defer session.mutex.Unlock()

	if len(session.path) == 0 {
		return nil, ErrNotStarted
	}
	if len(session.path) == 1 {
		return nil, ErrAtStart
	}
	session.path = session.path[:len(session.path)-1]
	session.backtracks++
	return session.current()
}

// Current returns the view of the current node, or nil before Start.
func (session *Session) Current() *archive.NodeView {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	view, _ := session.current()
	return view
}

// Position returns the current node's index position. The boolean is
// false before Start.
func (session *Session) Position() (int, bool) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if len(session.path) == 0 {
		return 0, false
	}
	return session.path[len(session.path)-1], true
}

// History returns the path from the starting node to the current one.
func (session *Session) History() []int {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return slices.Clone(session.path)
}

// Stats returns a copy of the session statistics.
func (session *Session) Stats() Stats {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return Stats{
		Choices:       session.choices,
		Backtracks:    session.backtracks,
		DistinctNodes: len(session.visits),
		Visits:        maps.Clone(session.visits),
	}
}

// Prefetch loads the destinations of the current node's edges that
// are not memoized yet, concurrently. The path is not changed. The
// first load error is returned; views that did load are kept.
func (session *Session) Prefetch(ctx context.Context) error {
	session.mutex.Lock()
	current, err := session.current()
	var pending []int
	if err == nil {
		for _, edge := range current.Edges {
			if _, ok := session.views[edge.Destination]; !ok && !slices.Contains(pending, edge.Destination) {
				pending = append(pending, edge.Destination)
			}
		}
	}
	session.mutex.Unlock()
	if err != nil {
		return err
	}

	group, groupContext := errgroup.WithContext(ctx)
	for _, position := range pending {
		group.Go(func() error {
			view, err := session.loader.LoadNode(groupContext, position)
			if err != nil {
				return fmt.Errorf("prefetching node %d: %w", position, err)
			}
			session.mutex.Lock()
			session.views[position] = view
			session.mutex.Unlock()
			return nil
		})
	}
	return group.Wait()
}

// current returns the view at the end of the path. The caller holds
// the mutex.
func (session *Session) current() (*archive.NodeView, error) {
	if len(session.path) == 0 {
		return nil, ErrNotStarted
	}
	return session.views[session.path[len(session.path)-1]], nil
}

// view returns the memoized view at position, loading it on first
// use. The caller holds the mutex.
func (session *Session) view(ctx context.Context, position int) (*archive.NodeView, error) {
	if view, ok := session.views[position]; ok {
		return view, nil
	}
	view, err := session.loader.LoadNode(ctx, position)
	if err != nil {
		return nil, err
	}
	session.views[position] = view
	return view, nil
}
