package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	dir, err := NewDirStore(filepath.Join(t.TempDir(), "transcripts"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewInMemoryStore(),
		"dir":    dir,
	}
}

func TestStore_SaveGetList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			second, err := s.Save(Record{SessionID: "s1", Agent: "b", User: "u2", Timestamp: base.Add(time.Second)})
			require.NoError(t, err)
			first, err := s.Save(Record{SessionID: "s1", Agent: "a", User: "u1", Response: "[]", Timestamp: base})
			require.NoError(t, err)
			_, err = s.Save(Record{SessionID: "s2", Agent: "c", User: "u3"})
			require.NoError(t, err)

			assert.NotEmpty(t, first.ID)

			got, err := s.Get("s1", first.ID)
			require.NoError(t, err)
			assert.Equal(t, "[]", got.Response)
			assert.True(t, got.Timestamp.Equal(base))

			list, err := s.List("s1")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, first.ID, list[0].ID)
			assert.Equal(t, second.ID, list[1].ID)

			_, err = s.Get("s1", "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			empty, err := s.List("unknown")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_AssignsTimestamp(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rec, err := s.Save(Record{SessionID: "s", Agent: "a"})
			require.NoError(t, err)
			assert.False(t, rec.Timestamp.IsZero())
		})
	}
}

func TestDirStore_Layout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	d, err := NewDirStore(root)
	require.NoError(t, err)

	rec, err := d.Save(Record{SessionID: "s1", Agent: "a", User: "u"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "s1", rec.ID+".json"))

	_, err = d.Save(Record{SessionID: "../escape"})
	assert.Error(t, err)

	rec, err = d.Save(Record{Agent: "popup_handler"})
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(root, "_no_session", rec.ID+".json"))
	assert.NoError(t, statErr)
}
