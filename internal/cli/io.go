package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

// readPosts decodes a JSON array of raw posts.
func readPosts(path string) ([]domain.RawPost, error) {
	var posts []domain.RawPost
	if err := readJSON(path, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// readAnalyzed decodes a JSON array of analyzed posts.
func readAnalyzed(path string) ([]domain.AnalyzedPost, error) {
	var posts []domain.AnalyzedPost
	if err := readJSON(path, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// withOutput runs write against path, or the command's stdout when path is
// empty or "-".
func withOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
