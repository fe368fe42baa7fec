// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archivetest

import "github.com/bureau-foundation/cyoa/lib/archive"

// Guard function id and argument used by the fixture's guarded
// content entry.
const (
	LampFunction = 7
	LampArgument = "lamp"
)

// Fixture is a small branching story shared by package tests:
//
//	cellar --"Climb the stairs"--> hall --"Walk on"--> end
//	cellar --"Open the hatch"----> garden --"Walk on"--> end
//	hall --"Go back down"--> cellar
//
// The hall has one guarded content entry (LampFunction with
// LampArgument) that appends " A lamp flickers." when allowed. The
// root pointer names the cellar.
type Fixture struct {
	Builder *Builder
	Data    []byte

	Cellar archive.ChunkID
	Hall   archive.ChunkID
	Garden archive.ChunkID
	End    archive.ChunkID
}

// NewFixture builds the fixture story, compressing chunks when
// compress is set.
func NewFixture(compress bool) *Fixture {
	builder := NewBuilder()
	builder.Compress = compress

	fixture := &Fixture{
		Builder: builder,
		Cellar:  builder.NextID(archive.ChunkNode),
		Hall:    builder.NextID(archive.ChunkNode),
		Garden:  builder.NextID(archive.ChunkNode),
		End:     builder.NextID(archive.ChunkNode),
	}

	cellarText := builder.Content("You wake in a cellar.")
	hallText := builder.Content("A long hall stretches north.")
	lampText := builder.Content(" A lamp flickers.")
	gardenText := builder.Content("A moonlit garden.")
	endText := builder.Content("The end.")

	climb := builder.Content("Climb the stairs")
	hatch := builder.Content("Open the hatch")
	walk := builder.Content("Walk on")
	back := builder.Content("Go back down")

	cellarToHall := builder.Edge(fixture.Cellar, fixture.Hall, climb)
	cellarToGarden := builder.Edge(fixture.Cellar, fixture.Garden, hatch)
	hallToCellar := builder.Edge(fixture.Hall, fixture.Cellar, back)
	hallToEnd := builder.Edge(fixture.Hall, fixture.End, walk)
	gardenToEnd := builder.Edge(fixture.Garden, fixture.End, walk)

	builder.NodeWithID(fixture.Cellar, Node{
		Name:         "cellar",
		Tags:         [][2]string{{"chapter", "1"}},
		Edges:        []archive.ChunkID{cellarToHall, cellarToGarden},
		Translations: []archive.Translation{{Language: "en", Content: cellarText}},
		Sequence:     []Entry{{Content: cellarText}},
	})
	builder.NodeWithID(fixture.Hall, Node{
		Name:           "hall",
		EntryFunctions: 1,
		Edges:          []archive.ChunkID{hallToCellar, hallToEnd},
		Translations:   []archive.Translation{{Language: "en", Content: hallText}},
		Sequence: []Entry{
			{Content: hallText},
			{Content: lampText, Guard: &Guard{FunctionID: LampFunction, Argument: []byte(LampArgument)}},
		},
	})
	builder.NodeWithID(fixture.Garden, Node{
		Name:     "garden",
		Edges:    []archive.ChunkID{gardenToEnd},
		Sequence: []Entry{{Content: gardenText}},
	})
	builder.NodeWithID(fixture.End, Node{
		Name:     "end",
		Sequence: []Entry{{Content: endText}},
	})
	builder.Root(fixture.Cellar)

	fixture.Data = builder.Bytes()
	return fixture
}

// Position returns the index position of a fixture node.
func (fixture *Fixture) Position(node archive.ChunkID) int {
	return fixture.Builder.Position(archive.ChunkNode, node)
}
