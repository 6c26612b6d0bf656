package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ai "github.com/zPy52/taichat"
)

func callHandler(t *testing.T, h Handler, args any) (string, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return h(context.Background(), ai.ToolCall{ID: "call-1", Arguments: string(raw)})
}

func TestReadFileHandler(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hello.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

		out, err := callHandler(t, ReadFileHandler(), map[string]string{"filePath": path})
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, path, result["path"])
		assert.Equal(t, "hello world", result["content"])
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.txt")
		_, err := callHandler(t, ReadFileHandler(), map[string]string{"filePath": path})
		require.Error(t, err)
		assert.Equal(t, "File not found: "+path, err.Error())
	})

	t.Run("directory", func(t *testing.T) {
		dir := t.TempDir()
		_, err := callHandler(t, ReadFileHandler(), map[string]string{"filePath": dir})
		require.Error(t, err)
		assert.Equal(t, "Path is a directory, not a file: "+dir, err.Error())
	})
}

func TestWriteFileHandler(t *testing.T) {
	t.Run("writes and reports bytes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		out, err := callHandler(t, WriteFileHandler(), map[string]string{
			"filePath": path,
			"content":  "data",
		})
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, float64(4), result["bytesWritten"])

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data", string(written))
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "c.txt")
		_, err := callHandler(t, WriteFileHandler(), map[string]string{
			"filePath": path,
			"content":  "nested",
		})
		require.NoError(t, err)

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "nested", string(written))
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "o.txt")
		require.NoError(t, os.WriteFile(path, []byte("old content"), 0o644))

		_, err := callHandler(t, WriteFileHandler(), map[string]string{
			"filePath": path,
			"content":  "new",
		})
		require.NoError(t, err)

		written, _ := os.ReadFile(path)
		assert.Equal(t, "new", string(written))
	})
}

func TestRemoveFileHandler(t *testing.T) {
	t.Run("removes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gone.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		out, err := callHandler(t, RemoveFileHandler(), map[string]string{"filePath": path})
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, true, result["removed"])

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.txt")
		_, err := callHandler(t, RemoveFileHandler(), map[string]string{"filePath": path})
		require.Error(t, err)
		assert.Equal(t, "File not found: "+path, err.Error())
	})

	t.Run("refuses directories", func(t *testing.T) {
		dir := t.TempDir()
		_, err := callHandler(t, RemoveFileHandler(), map[string]string{"filePath": dir})
		require.Error(t, err)
		assert.Equal(t, "Path is a directory, not a file: "+dir, err.Error())
	})
}

func TestListDirectoryHandler(t *testing.T) {
	t.Run("lists entries", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

		out, err := callHandler(t, ListDirectoryHandler(), map[string]string{"dirPath": dir})
		require.NoError(t, err)

		var result struct {
			Path  string `json:"path"`
			Items []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"items"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, dir, result.Path)
		require.Len(t, result.Items, 2)

		types := map[string]string{}
		for _, item := range result.Items {
			types[item.Name] = item.Type
		}
		assert.Equal(t, "file", types["f.txt"])
		assert.Equal(t, "directory", types["sub"])
	})

	t.Run("missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nope")
		_, err := callHandler(t, ListDirectoryHandler(), map[string]string{"dirPath": path})
		require.Error(t, err)
		assert.Equal(t, "Directory not found: "+path, err.Error())
	})

	t.Run("defaults to current directory", func(t *testing.T) {
		out, err := callHandler(t, ListDirectoryHandler(), map[string]string{})
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, ".", result["path"])
	})
}

func TestCatalog(t *testing.T) {
	r := Catalog()

	assert.Equal(t, 6, r.Len())
	assert.False(t, r.IsDangerous("read_file"))
	assert.False(t, r.IsDangerous("list_directory"))
	assert.False(t, r.IsDangerous("search_web"))
	assert.True(t, r.IsDangerous("write_file"))
	assert.True(t, r.IsDangerous("remove_file"))
	assert.True(t, r.IsDangerous("execute_command"))
}
