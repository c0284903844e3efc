package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitSet(t *testing.T) {
	a := NewBitSet(10)
	b := NewBitSet(10)
	assert.True(t, a.Equals(b))
	assert.True(t, a.IsEmpty())

	a.SetBit(0)
	a.SetBit(9)
	assert.True(t, a.HasBit(0))
	assert.True(t, a.HasBit(9))
	assert.False(t, a.HasBit(5))
	assert.False(t, a.IsEmpty())
	assert.False(t, a.Equals(b))

	b.SetBit(0)
	b.SetBit(9)
	assert.True(t, a.Equals(b))
	assert.Equal(t, a.String(), b.String())

	c := a.Copy()
	c.SetBit(5)
	assert.False(t, a.HasBit(5))
}

func TestJoiner(t *testing.T) {
	j := Joiner{}
	j.AddString("hello")
	j.AddString(" ")
	j.AddString("world")
	require.Equal(t, uint32(11), j.Length())
	require.Equal(t, byte('d'), j.LastByte())

	j.EnsureNewlineAtEnd()
	require.Equal(t, "hello world\n", string(j.Done()))

	// Already ends with a newline
	j.EnsureNewlineAtEnd()
	require.Equal(t, "hello world\n", string(j.Done()))
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "entry", SanitizeFileName("entry"))
	assert.Equal(t, "my-file_2", SanitizeFileName("my-file_2"))
	assert.Equal(t, "a_b_c", SanitizeFileName("a.b/c"))
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "entry", FileStem("src/entry.js"))
	assert.Equal(t, "entry.test", FileStem("entry.test.js"))
	assert.Equal(t, "noext", FileStem("lib/noext"))
	assert.Equal(t, ".bashrc", FileStem(".bashrc"))
}

func TestRelativeImportPath(t *testing.T) {
	assert.Equal(t, "./a.js", RelativeImportPath("entry.js", "a.js"))
	assert.Equal(t, "./b.js", RelativeImportPath("nested/a.js", "nested/b.js"))
	assert.Equal(t, "../b.js", RelativeImportPath("nested/a.js", "b.js"))
	assert.Equal(t, "./deep/b.js", RelativeImportPath("a.js", "deep/b.js"))
	assert.Equal(t, "../other/b.js", RelativeImportPath("nested/a.js", "other/b.js"))
}
