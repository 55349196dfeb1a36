package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "uploads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFind_Missing(t *testing.T) {
	s := openTestStore(t)

	url, ok, err := s.Find("SIG Windows 2024-03-05")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, url)
}

func TestRecordAndFind(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("SIG Windows 2024-03-05", "https://youtu.be/XYZ"))

	url, ok, err := s.Find("SIG Windows 2024-03-05")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://youtu.be/XYZ", url)
}

func TestRecord_ReuploadReplaces(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("SIG Windows 2024-03-05", "https://youtu.be/OLD"))
	require.NoError(t, s.Record("SIG Windows 2024-03-05", "https://youtu.be/NEW"))

	url, ok, err := s.Find("SIG Windows 2024-03-05")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://youtu.be/NEW", url)

	uploads, err := s.List()
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
}

func TestList_Order(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Record("first", "https://youtu.be/a"))
	require.NoError(t, s.Record("second", "https://youtu.be/b"))

	uploads, err := s.List()
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	for _, u := range uploads {
		assert.NotEmpty(t, u.UploadedAt)
	}
}
