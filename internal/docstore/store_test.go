package docstore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	file, err := s.Save("report.txt", strings.NewReader("document body"))
	require.NoError(t, err)
	assert.Equal(t, "report.txt", file.Name)
	assert.True(t, strings.HasSuffix(file.StoredName, "_report.txt"))
	assert.NotEqual(t, "report.txt", file.StoredName)

	r, err := s.Open(file.StoredName)
	require.NoError(t, err)
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "document body", string(body))
}

func TestSaveSameNameTwiceDoesNotCollide(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := s.Save("doc.txt", strings.NewReader("first"))
	require.NoError(t, err)
	b, err := s.Save("doc.txt", strings.NewReader("second"))
	require.NoError(t, err)

	assert.NotEqual(t, a.StoredName, b.StoredName)

	files, err := s.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestSaveRejectsEmptyName(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("  ", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestSaveStripsDirectoryComponents(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	file, err := s.Save("../../etc/passwd", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", file.Name)
	assert.NotContains(t, file.StoredName, "/")
}

func TestListOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	first, err := s.Save("first.txt", strings.NewReader("1"))
	require.NoError(t, err)
	second, err := s.Save("second.txt", strings.NewReader("2"))
	require.NoError(t, err)

	// Filesystem mtime resolution can be coarse; separate them explicitly.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, first.StoredName), past, past))

	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, first.StoredName, files[0].StoredName)
	assert.Equal(t, second.StoredName, files[1].StoredName)
	assert.Equal(t, "first.txt", files[0].Name)
}

func TestDeleteAndDeleteAll(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := s.Save("a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = s.Save("b.txt", strings.NewReader("b"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(a.StoredName))
	files, err := s.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)

	assert.Error(t, s.Delete(a.StoredName), "deleting twice fails")

	require.NoError(t, s.DeleteAll())
	files, err = s.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestOriginalNameStripsOnlyUUIDPrefix(t *testing.T) {
	assert.Equal(t, "my_report.txt", originalName("7f9c24e5-1111-2222-3333-444455556666_my_report.txt"))
	assert.Equal(t, "plain.txt", originalName("plain.txt"))
}
