// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/cyoa/lib/archive"
	"github.com/bureau-foundation/cyoa/lib/archive/archivetest"
	"github.com/bureau-foundation/cyoa/lib/transport"
)

const storyPath = "/story.cyoa"

// openFixture serves data and opens it through an instrumented HTTP
// transport.
func openFixture(t *testing.T, data []byte, config archive.OpenConfig) (*archive.Archive, *archivetest.Server, *transport.Metrics) {
	t.Helper()
	server := archivetest.NewServer(t, map[string][]byte{storyPath: data})
	metrics := transport.NewMetrics(nil)
	config.Transport = transport.Instrument(transport.NewHTTP(server.URL, server.Client()), metrics)
	if config.Path == "" {
		config.Path = "story.cyoa"
	}
	if config.CoalesceGap == 0 {
		config.CoalesceGap = -1
	}
	opened, err := archive.Open(context.Background(), config)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return opened, server, metrics
}

func rangeRequests(metrics *transport.Metrics) float64 {
	return testutil.ToFloat64(metrics.Requests.WithLabelValues(transport.OperationRange, "ok"))
}

func TestOpenReadsHeaderThenIndex(t *testing.T) {
	fixture := archivetest.NewFixture(false)
	opened, server, _ := openFixture(t, fixture.Data, archive.OpenConfig{})

	indexOffset := uint64(archive.HeaderLength)
	for _, entry := range fixture.Builder.Layout() {
		indexOffset += uint64(entry.Length)
	}
	want := []string{"bytes=0-0", "bytes=0-21", "bytes=" + strconv.FormatUint(indexOffset, 10) + "-"}
	if diff := cmp.Diff(want, server.Ranges()); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}

	if opened.Path() != storyPath {
		t.Errorf("got path %q, want %q", opened.Path(), storyPath)
	}
	if opened.Size() != uint64(len(fixture.Data)) {
		t.Errorf("got size %d, want %d", opened.Size(), len(fixture.Data))
	}
	if !opened.SupportsRanges() {
		t.Error("expected range support")
	}
	if len(opened.Fingerprint()) != 64 {
		t.Errorf("got fingerprint %q, want 64 hex characters", opened.Fingerprint())
	}
}

func TestChunkIDs(t *testing.T) {
	fixture := archivetest.NewFixture(false)
	opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})

	layout := fixture.Builder.Layout()
	ids := opened.ChunkIDs()
	if len(ids) != len(layout) {
		t.Fatalf("got %d ids, want %d", len(ids), len(layout))
	}
	for i, entry := range layout {
		if ids[i] != entry.ID.String() {
			t.Errorf("id %d: got %q, want %q", i, ids[i], entry.ID.String())
		}
	}
	if diff := cmp.Diff(layout, opened.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenFailures(t *testing.T) {
	t.Run("no range support", func(t *testing.T) {
		fixture := archivetest.NewFixture(false)
		server := archivetest.NewServer(t, map[string][]byte{storyPath: fixture.Data}, archivetest.WithoutRanges())
		_, err := archive.Open(context.Background(), archive.OpenConfig{
			Transport: transport.NewHTTP(server.URL, server.Client()),
			Path:      storyPath,
		})
		if !errors.Is(err, archive.ErrRangeUnsupported) {
			t.Fatalf("got %v, want ErrRangeUnsupported", err)
		}
		if server.Requests() != 1 {
			t.Errorf("got %d requests, want only the probe", server.Requests())
		}
	})

	t.Run("invalid magic", func(t *testing.T) {
		data := archivetest.NewFixture(false).Data
		data[0] = 'X'
		server := archivetest.NewServer(t, map[string][]byte{storyPath: data})
		_, err := archive.Open(context.Background(), archive.OpenConfig{
			Transport: transport.NewHTTP(server.URL, nil),
			Path:      storyPath,
		})
		if !errors.Is(err, archive.ErrInvalidMagic) {
			t.Fatalf("got %v, want ErrInvalidMagic", err)
		}
	})

	t.Run("index offset past end", func(t *testing.T) {
		builder := archivetest.NewFixture(false).Builder
		builder.IndexOffset = 1 << 20
		server := archivetest.NewServer(t, map[string][]byte{storyPath: builder.Bytes()})
		_, err := archive.Open(context.Background(), archive.OpenConfig{
			Transport: transport.NewHTTP(server.URL, nil),
			Path:      storyPath,
		})
		if !errors.Is(err, archive.ErrIndexOutOfRange) {
			t.Fatalf("got %v, want ErrIndexOutOfRange", err)
		}
	})

	t.Run("missing resource", func(t *testing.T) {
		server := archivetest.NewServer(t, nil)
		_, err := archive.Open(context.Background(), archive.OpenConfig{
			Transport: transport.NewHTTP(server.URL, nil),
			Path:      storyPath,
		})
		var statusError *transport.StatusError
		if !errors.As(err, &statusError) || statusError.StatusCode != http.StatusNotFound {
			t.Fatalf("got %v, want 404 StatusError", err)
		}
		if archive.Classify(err) != archive.KindTransport {
			t.Errorf("got kind %v, want transport", archive.Classify(err))
		}
	})

	t.Run("server unreachable", func(t *testing.T) {
		server := archivetest.NewServer(t, nil)
		baseURL := server.URL
		server.Close()
		_, err := archive.Open(context.Background(), archive.OpenConfig{
			Transport: transport.NewHTTP(baseURL, nil),
			Path:      storyPath,
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if archive.Classify(err) != archive.KindTransport {
			t.Errorf("got kind %v for %v, want transport", archive.Classify(err), err)
		}
	})

	t.Run("probe without size", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			writer.Write([]byte("CYOA"))
			writer.(http.Flusher).Flush()
		}))
		defer server.Close()
		_, err := archive.Open(context.Background(), archive.OpenConfig{
			Transport: transport.NewHTTP(server.URL, nil),
			Path:      storyPath,
		})
		if archive.Classify(err) != archive.KindTransport {
			t.Errorf("got kind %v for %v, want transport", archive.Classify(err), err)
		}
	})
}

func TestLoadNode(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			fixture := archivetest.NewFixture(compress)
			opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})

			view, err := opened.LoadNode(context.Background(), fixture.Position(fixture.Cellar))
			if err != nil {
				t.Fatalf("LoadNode: %v", err)
			}
			want := &archive.NodeView{
				Content: "You wake in a cellar.",
				Edges: []archive.EdgeView{
					{Label: "Climb the stairs", Destination: fixture.Position(fixture.Hall)},
					{Label: "Open the hatch", Destination: fixture.Position(fixture.Garden)},
				},
			}
			if diff := cmp.Diff(want, view); diff != "" {
				t.Errorf("view mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadNodeGraphClosure(t *testing.T) {
	fixture := archivetest.NewFixture(true)
	opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})

	nodes := 0
	for position, entry := range opened.Entries() {
		if entry.Type != archive.ChunkNode {
			continue
		}
		nodes++
		view, err := opened.LoadNode(context.Background(), position)
		if err != nil {
			t.Fatalf("LoadNode(%d): %v", position, err)
		}
		for _, edge := range view.Edges {
			entries := opened.Entries()
			if edge.Destination < 0 || edge.Destination >= len(entries) || entries[edge.Destination].Type != archive.ChunkNode {
				t.Errorf("node %d: edge %q points at %d, not a node", position, edge.Label, edge.Destination)
			}
		}
	}
	if nodes != 4 {
		t.Errorf("visited %d nodes, want 4", nodes)
	}
}

func TestLoadNodeIsIdempotentAndCached(t *testing.T) {
	fixture := archivetest.NewFixture(false)
	opened, _, metrics := openFixture(t, fixture.Data, archive.OpenConfig{})
	position := fixture.Position(fixture.Hall)

	before := rangeRequests(metrics)
	first, err := opened.LoadNode(context.Background(), position)
	if err != nil {
		t.Fatalf("first LoadNode: %v", err)
	}
	firstCost := rangeRequests(metrics) - before

	before = rangeRequests(metrics)
	second, err := opened.LoadNode(context.Background(), position)
	if err != nil {
		t.Fatalf("second LoadNode: %v", err)
	}
	secondCost := rangeRequests(metrics) - before

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("views differ (-first +second):\n%s", diff)
	}
	if secondCost >= firstCost {
		t.Errorf("second load made %v requests, first made %v; want strictly fewer", secondCost, firstCost)
	}
	if secondCost != 0 {
		t.Errorf("second load made %v requests, want 0 with a warm cache", secondCost)
	}
	if stats := opened.CacheStats(); stats.Hits == 0 {
		t.Errorf("got stats %+v, want cache hits", stats)
	}
}

func TestLoadNodeCacheBound(t *testing.T) {
	fixture := archivetest.NewFixture(false)
	opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{CacheCapacity: 3})
	for _, node := range []archive.ChunkID{fixture.Cellar, fixture.Hall, fixture.Garden, fixture.End} {
		if _, err := opened.LoadNode(context.Background(), fixture.Position(node)); err != nil {
			t.Fatalf("LoadNode: %v", err)
		}
		if stats := opened.CacheStats(); stats.Entries > 3 {
			t.Fatalf("cache holds %d entries, capacity 3", stats.Entries)
		}
	}
	if stats := opened.CacheStats(); stats.Evictions == 0 {
		t.Errorf("got stats %+v, want evictions", stats)
	}
}

func TestLoadNodeGuards(t *testing.T) {
	fixture := archivetest.NewFixture(false)
	position := fixture.Position(fixture.Hall)

	tests := []struct {
		name   string
		guards archive.GuardEvaluator
		want   string
	}{
		{"default denies", nil, "A long hall stretches north."},
		{"allow all", archive.AllowGuards, "A long hall stretches north. A lamp flickers."},
		{"function and argument", archive.GuardFunc(func(functionID uint32, argument []byte) bool {
			return functionID == archivetest.LampFunction && string(argument) == archivetest.LampArgument
		}), "A long hall stretches north. A lamp flickers."},
		{"wrong function", archive.GuardFunc(func(functionID uint32, argument []byte) bool {
			return functionID == archivetest.LampFunction+1
		}), "A long hall stretches north."},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{Guards: test.guards})
			view, err := opened.LoadNode(context.Background(), position)
			if err != nil {
				t.Fatalf("LoadNode: %v", err)
			}
			if view.Content != test.want {
				t.Errorf("got %q, want %q", view.Content, test.want)
			}
		})
	}
}

func TestLoadNodeGuardSelectionOrder(t *testing.T) {
	builder := archivetest.NewBuilder()
	a := builder.Content("A")
	b := builder.Content("B")
	c := builder.Content("C")
	node := builder.Node(archivetest.Node{Sequence: []archivetest.Entry{
		{Content: a, Guard: &archivetest.Guard{FunctionID: 1, Argument: []byte("a")}},
		{Content: b},
		{Content: c, Guard: &archivetest.Guard{FunctionID: 2, Argument: []byte("c")}},
	}})
	guards := archive.GuardFunc(func(functionID uint32, argument []byte) bool {
		return functionID == 2 && string(argument) == "c"
	})
	opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{Guards: guards})

	view, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, node))
	if err != nil {
		t.Fatalf("LoadNode: %v", err)
	}
	if view.Content != "BC" {
		t.Errorf("got %q, want %q", view.Content, "BC")
	}
	if view.Edges == nil || len(view.Edges) != 0 {
		t.Errorf("got edges %#v, want empty non-nil list", view.Edges)
	}
}

func TestLoadNodeFailures(t *testing.T) {
	t.Run("position out of range", func(t *testing.T) {
		fixture := archivetest.NewFixture(false)
		opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})
		for _, position := range []int{-1, len(opened.Entries())} {
			_, err := opened.LoadNode(context.Background(), position)
			expectParseError(t, err, "node index out of range")
		}
	})

	t.Run("not a node", func(t *testing.T) {
		fixture := archivetest.NewFixture(false)
		opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})
		_, err := opened.LoadNode(context.Background(), 0)
		expectParseError(t, err, "not a node chunk")
	})

	t.Run("dangling content", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		node := builder.Node(archivetest.Node{Sequence: []archivetest.Entry{{Content: archive.ChunkID{9, 9, 9}}}})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, node))
		expectParseError(t, err, "content chunk not found")
	})

	t.Run("dangling edge", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		text := builder.Content("text")
		node := builder.Node(archivetest.Node{
			Edges:    []archive.ChunkID{{9, 9, 9}},
			Sequence: []archivetest.Entry{{Content: text}},
		})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, node))
		expectParseError(t, err, "edge chunk not found")
	})

	t.Run("dangling label", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		text := builder.Content("text")
		target := builder.NextID(archive.ChunkNode)
		edge := builder.Edge(target, target, archive.ChunkID{9, 9, 9})
		builder.NodeWithID(target, archivetest.Node{Edges: []archive.ChunkID{edge}, Sequence: []archivetest.Entry{{Content: text}}})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, target))
		expectParseError(t, err, "label content not found")
	})

	t.Run("dangling destination", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		text := builder.Content("text")
		label := builder.Content("go")
		source := builder.NextID(archive.ChunkNode)
		edge := builder.Edge(source, archive.ChunkID{9, 9, 9}, label)
		builder.NodeWithID(source, archivetest.Node{Edges: []archive.ChunkID{edge}, Sequence: []archivetest.Entry{{Content: text}}})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, source))
		expectParseError(t, err, "edge destination node not found")
	})

	t.Run("content id of another type does not resolve", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		node := builder.NextID(archive.ChunkNode)
		// The node's own id, as a content reference, must not match the
		// node chunk.
		builder.NodeWithID(node, archivetest.Node{Sequence: []archivetest.Entry{{Content: node}}})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, node))
		expectParseError(t, err, "content chunk not found")
	})

	t.Run("cancelled context", func(t *testing.T) {
		fixture := archivetest.NewFixture(false)
		opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := opened.LoadNode(ctx, fixture.Position(fixture.Cellar))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	})
}

func TestLoadRoot(t *testing.T) {
	fixture := archivetest.NewFixture(true)
	opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{})

	position, err := opened.RootPosition(context.Background())
	if err != nil {
		t.Fatalf("RootPosition: %v", err)
	}
	if position != fixture.Position(fixture.Cellar) {
		t.Errorf("got root position %d, want %d", position, fixture.Position(fixture.Cellar))
	}
	root, err := opened.LoadRoot(context.Background())
	if err != nil {
		t.Fatalf("LoadRoot: %v", err)
	}
	direct, err := opened.LoadNode(context.Background(), position)
	if err != nil {
		t.Fatalf("LoadNode: %v", err)
	}
	if diff := cmp.Diff(direct, root); diff != "" {
		t.Errorf("root differs from LoadNode(root position) (-direct +root):\n%s", diff)
	}
}

func TestLoadRootFailures(t *testing.T) {
	t.Run("missing pointer", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		builder.Node(archivetest.Node{Sequence: []archivetest.Entry{{Content: builder.Content("x")}}})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadRoot(context.Background())
		if !errors.Is(err, archive.ErrMissingRoot) {
			t.Fatalf("got %v, want ErrMissingRoot", err)
		}
		if archive.Classify(err) != archive.KindMissingRoot {
			t.Errorf("got kind %v", archive.Classify(err))
		}
	})

	t.Run("pointer to unknown node", func(t *testing.T) {
		builder := archivetest.NewBuilder()
		builder.Root(archive.ChunkID{7, 7, 7})
		opened, _, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
		_, err := opened.LoadRoot(context.Background())
		expectParseError(t, err, "root node chunk not found")
	})
}

func TestChunkRangeRequests(t *testing.T) {
	// A content chunk placed at offset 100 with length 50 must be fetched
	// as bytes=100-149.
	builder := archivetest.NewBuilder()
	padding := builder.NextID(archive.ChunkArgBlobPool)
	builder.Add(archivetest.Chunk{Type: archive.ChunkArgBlobPool, ID: padding, Raw: make([]byte, 100-archive.HeaderLength)})
	// Envelope (9) + id length (2) + text length (4) + 35 bytes of text.
	text := strings.Repeat("x", 35)
	content := builder.NextID(archive.ChunkContent)
	builder.Add(archivetest.Chunk{Type: archive.ChunkContent, ID: content, Payload: archivetest.EncodeContent("", text)})
	node := builder.Node(archivetest.Node{Sequence: []archivetest.Entry{{Content: content}}})

	layout := builder.Layout()
	contentEntry := layout[builder.Position(archive.ChunkContent, content)]
	if contentEntry.Offset != 100 || contentEntry.Length != 50 {
		t.Fatalf("fixture layout: got offset %d length %d, want 100/50", contentEntry.Offset, contentEntry.Length)
	}

	opened, server, _ := openFixture(t, builder.Bytes(), archive.OpenConfig{})
	server.Reset()
	if _, err := opened.LoadNode(context.Background(), builder.Position(archive.ChunkNode, node)); err != nil {
		t.Fatalf("LoadNode: %v", err)
	}
	ranges := server.Ranges()
	found := false
	for _, header := range ranges {
		if header == "bytes=100-149" {
			found = true
		}
	}
	if !found {
		t.Errorf("got requests %v, want one for bytes=100-149", ranges)
	}
}

func TestCoalescedFetches(t *testing.T) {
	fixture := archivetest.NewFixture(false)
	position := fixture.Position(fixture.Cellar)

	plain, _, plainMetrics := openFixture(t, fixture.Data, archive.OpenConfig{})
	coalesced, _, coalescedMetrics := openFixture(t, fixture.Data, archive.OpenConfig{CoalesceGap: 1 << 16})

	plainView, err := plain.LoadNode(context.Background(), position)
	if err != nil {
		t.Fatalf("plain LoadNode: %v", err)
	}
	coalescedView, err := coalesced.LoadNode(context.Background(), position)
	if err != nil {
		t.Fatalf("coalesced LoadNode: %v", err)
	}
	if diff := cmp.Diff(plainView, coalescedView); diff != "" {
		t.Errorf("views differ (-plain +coalesced):\n%s", diff)
	}
	if rangeRequests(coalescedMetrics) >= rangeRequests(plainMetrics) {
		t.Errorf("coalesced made %v range requests, plain made %v; want fewer",
			rangeRequests(coalescedMetrics), rangeRequests(plainMetrics))
	}
}

func TestConcurrentLoads(t *testing.T) {
	fixture := archivetest.NewFixture(true)
	opened, _, _ := openFixture(t, fixture.Data, archive.OpenConfig{CacheCapacity: 4})

	want, err := opened.LoadNode(context.Background(), fixture.Position(fixture.Hall))
	if err != nil {
		t.Fatalf("LoadNode: %v", err)
	}

	var group sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		group.Add(1)
		go func() {
			defer group.Done()
			for _, node := range []archive.ChunkID{fixture.Cellar, fixture.Hall, fixture.Garden, fixture.End} {
				view, err := opened.LoadNode(context.Background(), fixture.Position(node))
				if err != nil {
					errs <- err
					return
				}
				if node == fixture.Hall && !cmp.Equal(want, view) {
					errs <- errors.New("hall view changed under concurrency")
					return
				}
			}
		}()
	}
	group.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func expectParseError(t *testing.T, err error, reason string) {
	t.Helper()
	var parseError *archive.ParseError
	if !errors.As(err, &parseError) {
		t.Fatalf("got %v, want parse error %q", err, reason)
	}
	if parseError.Reason != reason {
		t.Fatalf("got reason %q, want %q", parseError.Reason, reason)
	}
}
