package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	ai "github.com/zPy52/taichat"
)

type readFileArgs struct {
	FilePath string `json:"filePath" desc:"Path to the file to read" required:"true"`
}

type writeFileArgs struct {
	FilePath string `json:"filePath" desc:"Path to the file to write" required:"true"`
	Content  string `json:"content" desc:"Content to write to the file" required:"true"`
}

type removeFileArgs struct {
	FilePath string `json:"filePath" desc:"Path to the file to remove" required:"true"`
}

type listDirectoryArgs struct {
	DirPath string `json:"dirPath" desc:"Path to the directory to list" default:"."`
}

// ReadFileTool declares the read_file tool.
func ReadFileTool() ai.Tool {
	return ai.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file at the given path.",
		Parameters:  ai.MustSchemaFor[readFileArgs](),
	}
}

// WriteFileTool declares the write_file tool.
func WriteFileTool() ai.Tool {
	return ai.Tool{
		Name:        "write_file",
		Description: "Write content to a file at the given path, creating it if it does not exist and overwriting it if it does.",
		Parameters:  ai.MustSchemaFor[writeFileArgs](),
	}
}

// RemoveFileTool declares the remove_file tool.
func RemoveFileTool() ai.Tool {
	return ai.Tool{
		Name:        "remove_file",
		Description: "Delete the file at the given path.",
		Parameters:  ai.MustSchemaFor[removeFileArgs](),
	}
}

// ListDirectoryTool declares the list_directory tool.
func ListDirectoryTool() ai.Tool {
	return ai.Tool{
		Name:        "list_directory",
		Description: "List the entries of a directory. Defaults to the current working directory.",
		Parameters:  ai.MustSchemaFor[listDirectoryArgs](),
	}
}

// ReadFileHandler returns the handler for read_file.
func ReadFileHandler() Handler {
	return Typed(func(ctx context.Context, args readFileArgs) (string, error) {
		info, err := os.Stat(args.FilePath)
		if err != nil {
			return "", fmt.Errorf("File not found: %s", args.FilePath)
		}
		if info.IsDir() {
			return "", fmt.Errorf("Path is a directory, not a file: %s", args.FilePath)
		}

		content, err := os.ReadFile(args.FilePath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", args.FilePath, err)
		}

		return marshalResult(map[string]any{
			"path":    args.FilePath,
			"content": string(content),
		})
	})
}

// WriteFileHandler returns the handler for write_file.
// Parent directories are created as needed.
func WriteFileHandler() Handler {
	return Typed(func(ctx context.Context, args writeFileArgs) (string, error) {
		if dir := filepath.Dir(args.FilePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}

		if err := os.WriteFile(args.FilePath, []byte(args.Content), 0o644); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", args.FilePath, err)
		}

		return marshalResult(map[string]any{
			"path":         args.FilePath,
			"bytesWritten": len(args.Content),
		})
	})
}

// RemoveFileHandler returns the handler for remove_file.
func RemoveFileHandler() Handler {
	return Typed(func(ctx context.Context, args removeFileArgs) (string, error) {
		info, err := os.Stat(args.FilePath)
		if err != nil {
			return "", fmt.Errorf("File not found: %s", args.FilePath)
		}
		if info.IsDir() {
			return "", fmt.Errorf("Path is a directory, not a file: %s", args.FilePath)
		}

		if err := os.Remove(args.FilePath); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", args.FilePath, err)
		}

		return marshalResult(map[string]any{
			"path":    args.FilePath,
			"removed": true,
		})
	})
}

// ListDirectoryHandler returns the handler for list_directory.
func ListDirectoryHandler() Handler {
	return Typed(func(ctx context.Context, args listDirectoryArgs) (string, error) {
		dirPath := args.DirPath
		if dirPath == "" {
			dirPath = "."
		}

		entries, err := os.ReadDir(dirPath)
		if err != nil {
			return "", fmt.Errorf("Directory not found: %s", dirPath)
		}

		items := make([]map[string]string, 0, len(entries))
		for _, entry := range entries {
			entryType := "file"
			if entry.IsDir() {
				entryType = "directory"
			}
			items = append(items, map[string]string{
				"name": entry.Name(),
				"type": entryType,
			})
		}

		return marshalResult(map[string]any{
			"path":  dirPath,
			"items": items,
		})
	})
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(data), nil
}
