// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package storyui

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// wrapBreakpoints are the characters ansi.Wrap may break after in
// addition to spaces.
const wrapBreakpoints = " ,.;-"

var (
	narrativeParserInstance goldmark.Markdown
	narrativeParserOnce     sync.Once
)

// narrativeParser returns the shared goldmark instance. Only the
// strikethrough extension is enabled: node content is prose, and
// tables or task lists have no meaning in a story.
func narrativeParser() goldmark.Markdown {
	narrativeParserOnce.Do(func() {
		narrativeParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough),
		)
	})
	return narrativeParserInstance
}

// renderNarrative renders a node's content as styled terminal text
// wrapped to width columns. Content is parsed as markdown. Soft line
// breaks become spaces so authored text reflows at any width; a hard
// break (two trailing spaces or a backslash) keeps its newline. Raw
// HTML is dropped.
func renderNarrative(input string, theme Theme, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := narrativeParser().Parser().Parse(text.NewReader(source))

	// The player always draws to a terminal, so the color profile is
	// forced rather than detected. Detection yields no color when
	// stderr is not a TTY, which is the case under test.
	lipRenderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lipRenderer.SetColorProfile(termenv.ANSI256)

	renderer := &narrativeRenderer{
		source:      source,
		theme:       theme,
		width:       width,
		lipRenderer: lipRenderer,
	}
	ast.Walk(document, renderer.walk)
	return strings.TrimRight(renderer.output.String(), "\n")
}

// narrativeRenderer walks a goldmark AST. Inline content accumulates
// in a buffer and is wrapped as a unit when its block closes.
type narrativeRenderer struct {
	source []byte
	theme  Theme
	width  int

	output strings.Builder
	inline strings.Builder

	// Prefixes for nested blockquotes and list items.
	prefixStack     []linePrefix
	linePrefix      string
	linePrefixWidth int

	// Replaces linePrefix for the next emitted line only. Holds a
	// list item's bullet.
	pendingBullet string

	boldCount          int
	italicCount        int
	strikethroughCount int

	listStack []listState

	lipRenderer *lipgloss.Renderer

	trailingNewlines int
}

type linePrefix struct {
	text  string
	width int
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (renderer *narrativeRenderer) newStyle() lipgloss.Style {
	return renderer.lipRenderer.NewStyle()
}

// currentWidth is the width left after nesting prefixes, never less
// than 10.
func (renderer *narrativeRenderer) currentWidth() int {
	return max(renderer.width-renderer.linePrefixWidth, 10)
}

func (renderer *narrativeRenderer) pushPrefix(prefixText string, visibleWidth int) {
	renderer.prefixStack = append(renderer.prefixStack, linePrefix{text: prefixText, width: visibleWidth})
	renderer.linePrefix += prefixText
	renderer.linePrefixWidth += visibleWidth
}

func (renderer *narrativeRenderer) popPrefix() {
	if len(renderer.prefixStack) == 0 {
		return
	}
	top := renderer.prefixStack[len(renderer.prefixStack)-1]
	renderer.prefixStack = renderer.prefixStack[:len(renderer.prefixStack)-1]
	renderer.linePrefix = renderer.linePrefix[:len(renderer.linePrefix)-len(top.text)]
	renderer.linePrefixWidth -= top.width
}

func (renderer *narrativeRenderer) inTightList() bool {
	if len(renderer.listStack) == 0 {
		return false
	}
	return renderer.listStack[len(renderer.listStack)-1].tight
}

// writeOutput appends to the output and tracks how many newlines it
// ends with.
func (renderer *narrativeRenderer) writeOutput(content string) {
	if content == "" {
		return
	}
	renderer.output.WriteString(content)

	trimmed := strings.TrimRight(content, "\n")
	trailing := len(content) - len(trimmed)
	if trimmed == "" {
		renderer.trailingNewlines += trailing
	} else {
		renderer.trailingNewlines = trailing
	}
}

func (renderer *narrativeRenderer) ensureNewline() {
	if renderer.output.Len() > 0 && renderer.trailingNewlines < 1 {
		renderer.writeOutput("\n")
	}
}

// ensureBlankLine separates blocks. Nothing is written at the start of
// the output so rendered text never opens with blank lines.
func (renderer *narrativeRenderer) ensureBlankLine() {
	if renderer.output.Len() == 0 {
		return
	}
	for renderer.trailingNewlines < 2 {
		renderer.writeOutput("\n")
	}
}

func (renderer *narrativeRenderer) consumeLinePrefix() string {
	if renderer.pendingBullet != "" {
		bullet := renderer.pendingBullet
		renderer.pendingBullet = ""
		return bullet
	}
	return renderer.linePrefix
}

func (renderer *narrativeRenderer) applyPrefixes(content string) string {
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		if index == 0 {
			lines[index] = renderer.consumeLinePrefix() + line
		} else {
			lines[index] = renderer.linePrefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func (renderer *narrativeRenderer) flushInline() string {
	content := renderer.inline.String()
	renderer.inline.Reset()
	if content == "" {
		return ""
	}
	return renderer.applyPrefixes(ansi.Wrap(content, renderer.currentWidth(), wrapBreakpoints))
}

func (renderer *narrativeRenderer) styledText(content string) string {
	style := renderer.newStyle().Foreground(renderer.theme.NormalText)
	if renderer.boldCount > 0 {
		style = style.Bold(true)
	}
	if renderer.italicCount > 0 {
		style = style.Italic(true)
	}
	if renderer.strikethroughCount > 0 {
		style = style.Strikethrough(true)
	}
	return style.Render(content)
}

// renderInlineContent renders node's children without disturbing the
// caller's inline buffer or style counters.
func (renderer *narrativeRenderer) renderInlineContent(node ast.Node) string {
	savedInline := renderer.inline.String()
	savedBold, savedItalic, savedStrike := renderer.boldCount, renderer.italicCount, renderer.strikethroughCount

	renderer.inline.Reset()
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		ast.Walk(child, renderer.walk)
	}
	result := renderer.inline.String()

	renderer.inline.Reset()
	renderer.inline.WriteString(savedInline)
	renderer.boldCount, renderer.italicCount, renderer.strikethroughCount = savedBold, savedItalic, savedStrike
	return result
}

// highlightCode syntax-highlights a fenced block with chroma, falling
// back to faint text when the language is missing or unknown.
func (renderer *narrativeRenderer) highlightCode(code, language string) string {
	if language == "" {
		return renderer.faintLines(code)
	}
	var buffer strings.Builder
	if err := quick.Highlight(&buffer, code, language, "terminal256", "monokai"); err != nil {
		return renderer.faintLines(code)
	}
	return buffer.String()
}

// faintLines styles each line separately. Rendering the block as one
// string would pad every line to the longest.
func (renderer *narrativeRenderer) faintLines(code string) string {
	faint := renderer.newStyle().Foreground(renderer.theme.FaintText)
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	for index, line := range lines {
		lines[index] = faint.Render(line)
	}
	return strings.Join(lines, "\n")
}

func (renderer *narrativeRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			renderer.inline.Reset()
			return ast.WalkContinue, nil
		}
		if flushed := renderer.flushInline(); flushed != "" {
			renderer.writeOutput(flushed)
			renderer.ensureNewline()
			if !renderer.inTightList() {
				renderer.ensureBlankLine()
			}
		}

	case ast.KindHeading:
		if entering {
			renderer.inline.Reset()
		} else {
			renderer.leaveHeading(node.(*ast.Heading))
		}

	case ast.KindFencedCodeBlock:
		if entering {
			block := node.(*ast.FencedCodeBlock)
			code := renderer.blockLines(block)
			renderer.writeCodeLines(renderer.highlightCode(code, string(block.Language(renderer.source))))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindCodeBlock:
		if entering {
			renderer.writeCodeLines(renderer.faintLines(renderer.blockLines(node)))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindBlockquote:
		if entering {
			bar := renderer.newStyle().Foreground(renderer.theme.BorderColor).Render("│ ")
			renderer.pushPrefix(bar, 2)
		} else {
			renderer.popPrefix()
			renderer.ensureBlankLine()
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			renderer.listStack = append(renderer.listStack, listState{
				ordered: list.IsOrdered(),
				counter: list.Start,
				tight:   list.IsTight,
			})
		} else {
			renderer.listStack = renderer.listStack[:len(renderer.listStack)-1]
			if !renderer.inTightList() {
				renderer.ensureBlankLine()
			}
		}

	case ast.KindListItem:
		if entering {
			renderer.enterListItem()
		} else {
			renderer.popPrefix()
			if renderer.inTightList() {
				renderer.ensureNewline()
			} else {
				renderer.ensureBlankLine()
			}
		}

	case ast.KindThematicBreak:
		if entering {
			rule := renderer.newStyle().Foreground(renderer.theme.BorderColor).
				Render(strings.Repeat("─", renderer.currentWidth()))
			renderer.ensureBlankLine()
			renderer.writeOutput(renderer.applyPrefixes(rule))
			renderer.ensureNewline()
			renderer.ensureBlankLine()
		}

	case ast.KindHTMLBlock, ast.KindRawHTML:
		return ast.WalkSkipChildren, nil

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			renderer.inline.WriteString(renderer.styledText(string(textNode.Segment.Value(renderer.source))))
			switch {
			case textNode.HardLineBreak():
				renderer.inline.WriteString("\n")
			case textNode.SoftLineBreak():
				renderer.inline.WriteString(" ")
			}
		}

	case ast.KindString:
		if entering {
			renderer.inline.WriteString(renderer.styledText(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if node.(*ast.Emphasis).Level >= 2 {
			renderer.boldCount += delta
		} else {
			renderer.italicCount += delta
		}

	case extast.KindStrikethrough:
		if entering {
			renderer.strikethroughCount++
		} else {
			renderer.strikethroughCount--
		}

	case ast.KindCodeSpan:
		if entering {
			var code strings.Builder
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch child := child.(type) {
				case *ast.Text:
					code.Write(child.Segment.Value(renderer.source))
				case *ast.String:
					code.Write(child.Value)
				}
			}
			renderer.inline.WriteString(renderer.newStyle().Foreground(renderer.theme.FaintText).Render(code.String()))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindLink:
		if entering {
			link := node.(*ast.Link)
			renderer.inline.WriteString(renderer.renderInlineContent(link))
			if destination := string(link.Destination); destination != "" {
				renderer.inline.WriteString(" " + renderer.newStyle().Foreground(renderer.theme.LinkForeground).Render("("+destination+")"))
			}
		}
		return ast.WalkSkipChildren, nil

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(renderer.source))
			renderer.inline.WriteString(renderer.newStyle().Foreground(renderer.theme.LinkForeground).Underline(true).Render(url))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindImage:
		if entering {
			alt := ansi.Strip(renderer.renderInlineContent(node))
			if alt == "" {
				alt = "image"
			}
			renderer.inline.WriteString(renderer.newStyle().Foreground(renderer.theme.FaintText).Render("[" + alt + "]"))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (renderer *narrativeRenderer) leaveHeading(heading *ast.Heading) {
	content := ansi.Strip(renderer.inline.String())
	renderer.inline.Reset()
	if content == "" {
		return
	}
	style := renderer.newStyle().Bold(true).Foreground(renderer.theme.NormalText)
	if heading.Level <= 2 {
		style = style.Foreground(renderer.theme.HeaderForeground)
	}
	wrapped := ansi.Wrap(style.Render(content), renderer.currentWidth(), wrapBreakpoints)
	renderer.ensureBlankLine()
	renderer.writeOutput(renderer.applyPrefixes(wrapped))
	renderer.ensureNewline()
	renderer.ensureBlankLine()
}

func (renderer *narrativeRenderer) blockLines(node ast.Node) string {
	var code strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		code.Write(segment.Value(renderer.source))
	}
	return code.String()
}

// writeCodeLines emits preformatted lines without wrapping.
func (renderer *narrativeRenderer) writeCodeLines(code string) {
	renderer.ensureBlankLine()
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		renderer.writeOutput(renderer.consumeLinePrefix() + line)
		renderer.ensureNewline()
	}
	renderer.ensureBlankLine()
}

func (renderer *narrativeRenderer) enterListItem() {
	if len(renderer.listStack) == 0 {
		return
	}
	top := &renderer.listStack[len(renderer.listStack)-1]
	bullet := "• "
	bulletWidth := 2
	if top.ordered {
		bullet = fmt.Sprintf("%d. ", top.counter)
		bulletWidth = len(bullet)
		top.counter++
	}
	renderer.pendingBullet = renderer.linePrefix + bullet
	renderer.pushPrefix(strings.Repeat(" ", bulletWidth), bulletWidth)
}
