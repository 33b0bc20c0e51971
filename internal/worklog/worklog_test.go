package worklog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesSessionDir(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(root, nil)
	require.NoError(t, err)

	info, err := os.Stat(m.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, root, filepath.Dir(m.Dir()))
}

func TestNewManagerRequiresRoot(t *testing.T) {
	_, err := NewManager("", nil)
	assert.Error(t, err)
}

func TestAppendWritesJSONL(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	m.Append("start_task", "task-1", map[string]any{"request": "build a parser"})
	m.Append("submit_code", "task-1", map[string]any{"submission_index": 0})

	f, err := os.Open(filepath.Join(m.Dir(), "workflow.log"))
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, entries, 2)
	assert.Equal(t, "start_task", entries[0].Event)
	assert.Equal(t, "task-1", entries[0].TaskID)
	assert.NotEmpty(t, entries[0].RunID)
	assert.Equal(t, entries[0].RunID, entries[1].RunID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestSnapshotNeverOverwrites(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	m.Snapshot("submission_0", map[string]any{"code": "v1"})
	m.Snapshot("submission_0", map[string]any{"code": "v2"})

	matches, err := filepath.Glob(filepath.Join(m.Dir(), "submission_0_*.json"))
	require.NoError(t, err)
	// Two snapshots in the same millisecond would collide on name; the
	// second is then dropped rather than overwriting the first.
	assert.GreaterOrEqual(t, len(matches), 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "v1", payload["code"])
}

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	m.Append("event", "task-1", nil)
	m.Snapshot("name", nil)
	assert.Empty(t, m.Dir())
}

func TestAppendUnserializableDataIsSwallowed(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil)
	require.NoError(t, err)

	m.Append("bad", "task-1", make(chan int))

	_, err = os.Stat(filepath.Join(m.Dir(), "workflow.log"))
	assert.True(t, os.IsNotExist(err))
}
