package textbuf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ksense/internal/text"
)

func TestInsertDeleteNotify(t *testing.T) {
	b := New("hello")
	var events []string
	b.OnInsertText(func(offset int, s string) {
		events = append(events, "ins:"+s)
		assert.Equal(t, "hello world", b.Text(), "listeners see the applied change")
	})
	b.OnDeleteRange(func(begin, end int) {
		events = append(events, "del")
		assert.Equal(t, 5, begin)
		assert.Equal(t, 11, end)
	})

	b.Insert(5, " world")
	b.Delete(5, 11)

	assert.Equal(t, []string{"ins: world", "del"}, events)
	assert.Equal(t, "hello", b.Text())
	assert.Equal(t, uint64(2), b.Revision())
}

func TestMarkGravity(t *testing.T) {
	b := New("foo bar")
	left := b.CreateMark(4, true)
	right := b.CreateMark(4, false)

	b.Insert(4, "xx")
	assert.Equal(t, 4, left.Offset())
	assert.Equal(t, 6, right.Offset())

	b.Delete(0, 5)
	assert.Equal(t, 0, left.Offset())
	assert.Equal(t, 1, right.Offset())
}

func TestDeleteMark(t *testing.T) {
	b := New("abc")
	before := b.MarkCount()
	m := b.CreateMark(1, true)
	assert.Equal(t, before+1, b.MarkCount())

	b.DeleteMark(m)
	b.DeleteMark(m)
	assert.True(t, m.Deleted())
	assert.Equal(t, before, b.MarkCount())

	b.MoveMark(m, 2)
	assert.Equal(t, 1, m.Offset(), "deleted marks do not move")
}

func TestCursorFollowsTyping(t *testing.T) {
	b := New("ab", WithCursor(1))
	var placed []int
	b.OnCursorSet(func(offset int) { placed = append(placed, offset) })

	b.InsertAtCursor("X")
	assert.Equal(t, "aXb", b.Text())
	assert.Equal(t, 2, b.Cursor())
	assert.Empty(t, placed, "edits carry the cursor without a cursor-set notification")

	b.SetCursor(0)
	assert.Equal(t, []int{0}, placed)
}

func TestSelection(t *testing.T) {
	b := New("hello world")
	assert.False(t, b.HasSelection())

	b.Select(0, 5)
	assert.True(t, b.HasSelection())
	lo, hi := b.Selection()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 5, hi)

	b.InsertAtCursor("bye")
	assert.Equal(t, "bye world", b.Text())
	assert.False(t, b.HasSelection())
}

func TestSetTextIsLoading(t *testing.T) {
	b := New("old")
	var sawLoading []bool
	b.OnInsertText(func(int, string) { sawLoading = append(sawLoading, b.IsLoading()) })

	b.SetText("new text")
	assert.Equal(t, []bool{true}, sawLoading)
	assert.False(t, b.IsLoading())
	assert.Equal(t, 0, b.Cursor())
}

func TestLinesAndPositions(t *testing.T) {
	b := New("ab\ncdé\n\nxyz")
	assert.Equal(t, 3, b.LineStart(5))
	assert.Equal(t, 6, b.LineEnd(4))

	pos := b.PositionAt(5)
	assert.Equal(t, Position{Line: 1, Column: 2}, pos)
	assert.Equal(t, 5, b.OffsetAt(pos))
	assert.Equal(t, 6, b.OffsetAt(Position{Line: 1, Column: 99}))
	assert.Equal(t, b.Len(), b.OffsetAt(Position{Line: 10}))
	assert.Equal(t, -1, Position{Line: 0, Column: 5}.Compare(Position{Line: 1}))
}

func TestUTF16Column(t *testing.T) {
	b := New("a😀b")
	assert.Equal(t, 3, b.UTF16Column(2))
	assert.Equal(t, 4, b.UTF16Column(3))
}

func TestContextClasses(t *testing.T) {
	src := "package p\n// note here\nvar s = \"quoted\"\n"
	b := New(src, WithLanguage("go"))

	assert.True(t, b.HasContextClass(strings.Index(src, "note"), text.ClassComment))
	assert.True(t, b.HasContextClass(strings.Index(src, "quoted"), text.ClassString))
	assert.False(t, b.HasContextClass(strings.Index(src, "var"), text.ClassComment))

	b.Delete(strings.Index(src, "//"), strings.Index(src, "//")+2)
	assert.False(t, b.HasContextClass(strings.Index(src, "note")-2, text.ClassComment),
		"regions are recomputed after edits")
}

func TestLanguageChanged(t *testing.T) {
	b := New("")
	var got []string
	off := b.OnLanguageChanged(func(lang string) { got = append(got, lang) })

	b.SetLanguage("Go")
	b.SetLanguage("go")
	off()
	b.SetLanguage("c")

	assert.Equal(t, []string{"go"}, got)
	assert.Equal(t, "c", b.Language())
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	b, err := Load(path, WithCursor(7))
	require.NoError(t, err)
	assert.Equal(t, "go", b.Language())
	assert.Equal(t, 7, b.Cursor())

	b.Insert(b.Len(), "func main() {}\n")
	require.NoError(t, b.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "package main\nfunc main() {}\n", string(data))

	missing, err := Load(filepath.Join(dir, "new.py"))
	require.NoError(t, err)
	assert.Zero(t, missing.Len())
	assert.Equal(t, "python", missing.Language())
}
