// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/cyoa/lib/archive"
	"github.com/bureau-foundation/cyoa/lib/archive/archivetest"
)

func TestParseNode(t *testing.T) {
	edgeA := archive.ChunkID{0, 2, 1}
	edgeB := archive.ChunkID{0, 2, 2}
	textA := archive.ChunkID{0, 3, 1}
	textB := archive.ChunkID{0, 3, 2}

	payload := archivetest.EncodeNode(archivetest.Node{
		Name:           "crossroads",
		Language:       "fr",
		Tags:           [][2]string{{"mood", "tense"}, {"act", "2"}},
		EntryFunctions: 2,
		Edges:          []archive.ChunkID{edgeA, edgeB},
		Translations:   []archive.Translation{{Language: "fr", Content: textA}, {Language: "en", Content: textB}},
		Sequence: []archivetest.Entry{
			{Content: textA},
			{Content: textB, Guard: &archivetest.Guard{FunctionID: 42, Argument: []byte("has-key")}},
		},
	})

	node, err := archive.ParseNode(payload)
	if err != nil {
		t.Fatalf("ParseNode: %v", err)
	}
	want := &archive.Node{
		ID:              "crossroads",
		DefaultLanguage: "fr",
		Edges:           []archive.ChunkID{edgeA, edgeB},
		Translations:    []archive.Translation{{Language: "fr", Content: textA}, {Language: "en", Content: textB}},
		Sequence: []archive.ContentRef{
			{Content: textA},
			{Content: textB, Guard: &archive.Guard{FunctionID: 42, Argument: []byte("has-key")}},
		},
	}
	if diff := cmp.Diff(want, node); diff != "" {
		t.Errorf("node mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNodeGuardArgumentOutOfBounds(t *testing.T) {
	payload := archivetest.EncodeNode(archivetest.Node{
		Sequence: []archivetest.Entry{
			{Content: archive.ChunkID{0, 3, 1}, Guard: &archivetest.Guard{FunctionID: 1, Argument: []byte("abc")}},
		},
	})
	// Drop the argument bytes appended after the sequence.
	_, err := archive.ParseNode(payload[:len(payload)-3])
	var parseError *archive.ParseError
	if !errors.As(err, &parseError) {
		t.Fatalf("got %v, want *ParseError", err)
	}
}

func TestParseNodeTruncated(t *testing.T) {
	payload := archivetest.EncodeNode(archivetest.Node{
		Edges:    []archive.ChunkID{{0, 2, 1}},
		Sequence: []archivetest.Entry{{Content: archive.ChunkID{0, 3, 1}}},
	})
	for cut := 0; cut < len(payload); cut++ {
		if _, err := archive.ParseNode(payload[:cut]); archive.Classify(err) != archive.KindParse {
			t.Fatalf("cut at %d: got %v, want parse error", cut, err)
		}
	}
}

func TestParseEdge(t *testing.T) {
	source := archive.ChunkID{0, 1, 1}
	destination := archive.ChunkID{0, 1, 2}
	payload := archivetest.EncodeEdge("north", source, destination, 3, []archive.Label{
		{Language: "en", Content: archive.ChunkID{0, 3, 9}},
		{Language: "de", Content: archive.ChunkID{0, 3, 10}},
	})

	edge, err := archive.ParseEdge(payload)
	if err != nil {
		t.Fatalf("ParseEdge: %v", err)
	}
	want := &archive.Edge{
		ID:          "north",
		Source:      source,
		Destination: destination,
		Label:       archive.Label{Language: "en", Content: archive.ChunkID{0, 3, 9}},
	}
	if diff := cmp.Diff(want, edge); diff != "" {
		t.Errorf("edge mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEdgeWithoutLabels(t *testing.T) {
	payload := archivetest.EncodeEdge("lonely", archive.ChunkID{}, archive.ChunkID{}, 0, nil)
	_, err := archive.ParseEdge(payload)
	var parseError *archive.ParseError
	if !errors.As(err, &parseError) || parseError.Reason != "No edge labels" {
		t.Fatalf("got %v, want %q", err, "No edge labels")
	}
}

func TestParseContent(t *testing.T) {
	content, err := archive.ParseContent(archivetest.EncodeContent("intro", "Once upon a time…"))
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}
	if content.ID != "intro" || content.Text != "Once upon a time…" {
		t.Errorf("got %+v", content)
	}

	t.Run("invalid utf-8", func(t *testing.T) {
		payload := archivetest.EncodeContent("bad", "\xff\xfe")
		_, err := archive.ParseContent(payload)
		var parseError *archive.ParseError
		if !errors.As(err, &parseError) || parseError.Reason != "Invalid UTF-8" {
			t.Fatalf("got %v, want %q", err, "Invalid UTF-8")
		}
	})

	t.Run("text length past end", func(t *testing.T) {
		payload := binary.LittleEndian.AppendUint16(nil, 0)
		payload = binary.LittleEndian.AppendUint32(payload, 100)
		payload = append(payload, "short"...)
		if _, err := archive.ParseContent(payload); archive.Classify(err) != archive.KindParse {
			t.Fatalf("got %v, want parse error", err)
		}
	})
}

func TestParseRootPointer(t *testing.T) {
	id, err := archive.ParseRootPointer([]byte{0x00, 0x01, 0x05, 0xFF})
	if err != nil {
		t.Fatalf("ParseRootPointer: %v", err)
	}
	if id != (archive.ChunkID{0x00, 0x01, 0x05}) {
		t.Errorf("got %v", id)
	}
	if _, err := archive.ParseRootPointer([]byte{1, 2}); archive.Classify(err) != archive.KindParse {
		t.Errorf("got %v, want parse error", err)
	}
}
