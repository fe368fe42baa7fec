// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storyui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"gocloud.dev/blob/memblob"

	"github.com/bureau-foundation/cyoa/lib/archive"
	"github.com/bureau-foundation/cyoa/lib/archive/archivetest"
	"github.com/bureau-foundation/cyoa/lib/story"
	"github.com/bureau-foundation/cyoa/lib/transport"
)

func openFixture(t *testing.T) (*archive.Archive, *archivetest.Fixture) {
	t.Helper()
	ctx := context.Background()
	fixture := archivetest.NewFixture(true)
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	if err := bucket.WriteAll(ctx, "fixture.cyoa", fixture.Data, nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	opened, err := archive.Open(ctx, archive.OpenConfig{
		Transport: transport.NewBlob(bucket),
		Path:      "fixture.cyoa",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return opened, fixture
}

// drive runs cmd and feeds each resulting message back through Update
// until no command remains. tea.Quit ends the loop.
func drive(t *testing.T, model Model, cmd tea.Cmd) Model {
	t.Helper()
	for step := 0; cmd != nil; step++ {
		if step > 20 {
			t.Fatal("command chain did not settle")
		}
		message := cmd()
		if message == nil {
			break
		}
		if _, ok := message.(tea.QuitMsg); ok {
			break
		}
		var updated tea.Model
		updated, cmd = model.Update(message)
		model = updated.(Model)
	}
	return model
}

func press(t *testing.T, model Model, message tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := model.Update(message)
	return drive(t, updated.(Model), cmd)
}

func runes(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func startModel(t *testing.T, options Options) (Model, *story.Session, *archivetest.Fixture) {
	t.Helper()
	opened, fixture := openFixture(t)
	session := story.NewSession(opened, nil)
	model := NewModel(context.Background(), session, options)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	model = drive(t, updated.(Model), model.Init())
	return model, session, fixture
}

func position(t *testing.T, session *story.Session) int {
	t.Helper()
	current, ok := session.Position()
	if !ok {
		t.Fatal("session has no position")
	}
	return current
}

func TestModelStartsAtRoot(t *testing.T) {
	model, session, fixture := startModel(t, Options{})
	if got, want := position(t, session), fixture.Position(fixture.Cellar); got != want {
		t.Errorf("got position %d, want %d", got, want)
	}
	if model.loading {
		t.Error("model still loading after start")
	}
	view := ansi.Strip(model.View())
	for _, want := range []string{"You wake in a cellar.", "1. Climb the stairs", "2. Open the hatch", "enter choose"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelChooseByNumber(t *testing.T) {
	model, session, fixture := startModel(t, Options{})
	model = press(t, model, runes("2"))
	if got, want := position(t, session), fixture.Position(fixture.Garden); got != want {
		t.Fatalf("got position %d, want %d", got, want)
	}
	if !strings.Contains(ansi.Strip(model.View()), "A moonlit garden.") {
		t.Errorf("view does not show the garden:\n%s", ansi.Strip(model.View()))
	}

	// A number past the last choice is ignored.
	model = press(t, model, runes("5"))
	if got, want := position(t, session), fixture.Position(fixture.Garden); got != want {
		t.Errorf("got position %d after invalid number, want %d", got, want)
	}
}

func TestModelCursorAndSelect(t *testing.T) {
	model, session, fixture := startModel(t, Options{})
	model = press(t, model, tea.KeyMsg{Type: tea.KeyDown})
	model = press(t, model, tea.KeyMsg{Type: tea.KeyDown})
	if model.cursor != 1 {
		t.Fatalf("got cursor %d, want 1 (clamped)", model.cursor)
	}
	model = press(t, model, tea.KeyMsg{Type: tea.KeyUp})
	model = press(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if got, want := position(t, session), fixture.Position(fixture.Hall); got != want {
		t.Fatalf("got position %d, want %d", got, want)
	}
	if model.cursor != 0 {
		t.Errorf("cursor not reset on arrival: %d", model.cursor)
	}
}

func TestModelBackAndRestart(t *testing.T) {
	model, session, fixture := startModel(t, Options{})
	model = press(t, model, runes("1"))
	model = press(t, model, runes("b"))
	if got, want := position(t, session), fixture.Position(fixture.Cellar); got != want {
		t.Fatalf("after back: got position %d, want %d", got, want)
	}
	model = press(t, model, runes("b"))
	if model.status != "already at the beginning" || model.failed {
		t.Errorf("got status %q (failed %v)", model.status, model.failed)
	}

	model = press(t, model, runes("2"))
	model = press(t, model, runes("1"))
	if !strings.Contains(ansi.Strip(model.View()), "The End.") {
		t.Errorf("expected end marker:\n%s", ansi.Strip(model.View()))
	}
	model = press(t, model, runes("r"))
	if got, want := position(t, session), fixture.Position(fixture.Cellar); got != want {
		t.Errorf("after restart: got position %d, want %d", got, want)
	}
	if history := session.History(); len(history) != 1 {
		t.Errorf("got history %v, want only the root", history)
	}
}

func TestModelIgnoresKeysWhileLoading(t *testing.T) {
	opened, _ := openFixture(t)
	session := story.NewSession(opened, nil)
	model := NewModel(context.Background(), session, Options{})
	if !model.loading {
		t.Fatal("unstarted model should be loading")
	}
	updated, cmd := model.Update(runes("1"))
	if cmd != nil {
		t.Error("key produced a command while loading")
	}
	if _, ok := session.Position(); ok {
		t.Error("session moved while loading")
	}
	_, cmd = updated.Update(runes("q"))
	if cmd == nil {
		t.Fatal("quit should work while loading")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit did not return tea.QuitMsg")
	}
}

func TestModelLoadError(t *testing.T) {
	model, session, fixture := startModel(t, Options{})
	updated, _ := model.Update(nodeLoadedMsg{err: errors.New("HTTP error: 503")})
	model = updated.(Model)
	if !model.failed || model.status != "HTTP error: 503" {
		t.Errorf("got status %q (failed %v)", model.status, model.failed)
	}
	if got, want := position(t, session), fixture.Position(fixture.Cellar); got != want {
		t.Errorf("failed load moved the session to %d", got)
	}
	if !strings.Contains(ansi.Strip(model.View()), "You wake in a cellar.") {
		t.Error("failed load cleared the current node")
	}
}

func TestModelSave(t *testing.T) {
	directory := t.TempDir()
	stamp := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	model, session, fixture := startModel(t, Options{
		SaveDirectory: directory,
		Now:           func() time.Time { return stamp },
	})
	model = press(t, model, runes("1"))
	model = press(t, model, runes("s"))

	path := filepath.Join(directory, "20260304-050607"+SaveExtension)
	if model.status != "saved "+path {
		t.Fatalf("got status %q", model.status)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	snapshot, err := story.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	want := []int{fixture.Position(fixture.Cellar), fixture.Position(fixture.Hall)}
	if len(snapshot.Path) != 2 || snapshot.Path[0] != want[0] || snapshot.Path[1] != want[1] {
		t.Errorf("got path %v, want %v", snapshot.Path, want)
	}
	current, err := session.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snapshot.Fingerprint != current.Fingerprint {
		t.Errorf("got fingerprint %q, want %q", snapshot.Fingerprint, current.Fingerprint)
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d files in save directory, want 1 (no temporaries)", len(entries))
	}
}

func TestModelSaveDisabled(t *testing.T) {
	model, _, _ := startModel(t, Options{})
	model = press(t, model, runes("s"))
	if model.status != "saving is not configured" {
		t.Errorf("got status %q", model.status)
	}
}

func TestModelResumesRestoredSession(t *testing.T) {
	opened, fixture := openFixture(t)
	ctx := context.Background()
	session := story.NewSession(opened, nil)
	if _, err := session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := session.Choose(ctx, 1); err != nil {
		t.Fatalf("Choose: %v", err)
	}

	model := NewModel(ctx, session, Options{Theme: WarmTheme, Width: WidthLow})
	if model.loading {
		t.Fatal("model over a started session should not be loading")
	}
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	model = drive(t, updated.(Model), model.Init())
	if got, want := position(t, session), fixture.Position(fixture.Garden); got != want {
		t.Errorf("Init moved the session to %d, want %d", got, want)
	}
	if model.viewport.Width != lowColumns {
		t.Errorf("got viewport width %d, want %d", model.viewport.Width, lowColumns)
	}
}

func TestModelLayoutFitsTerminal(t *testing.T) {
	model, _, _ := startModel(t, Options{})
	lines := strings.Split(model.View(), "\n")
	if len(lines) > 20 {
		t.Errorf("view is %d lines, terminal is 20", len(lines))
	}
	for index, line := range lines {
		if width := ansi.StringWidth(line); width > 60 {
			t.Errorf("line %d is %d columns wide: %q", index, width, ansi.Strip(line))
		}
	}
}
