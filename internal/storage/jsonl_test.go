package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubScope/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestJsonlStorageAppendsBatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs.jsonl")
	s := NewJsonlStorage(path)

	require.NoError(t, s.PutLogBatch([]model.LogRecord{{BlockNumber: 1, LogIndex: 0}, {BlockNumber: 1, LogIndex: 1}}))
	require.NoError(t, s.PutLogBatch(nil))
	require.NoError(t, s.PutLogBatch([]model.LogRecord{{BlockNumber: 2, Topics: []string{"0xabc"}}}))

	lines := readLines(t, path)
	require.Len(t, lines, 3)

	var last model.LogRecord
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, uint64(2), last.BlockNumber)
	assert.Equal(t, []string{"0xabc"}, last.Topics)
}

func TestWriterTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.jsonl")
	for i := 0; i < 2; i++ {
		w, err := NewWriter(path, false)
		require.NoError(t, err)
		require.NoError(t, w.Write(model.DecodeError{BlockNumber: uint64(i), Error: "bad topic"}))
		assert.Equal(t, 1, w.Lines())
		require.NoError(t, w.Close())
	}

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"block_number":1`)
}

func TestWriteFileAtomicKeepsOldFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "state.jsonl")
	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first\n")
		return err
	}))

	boom := errors.New("boom")
	err := WriteFileAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"first"}, readLines(t, path))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
