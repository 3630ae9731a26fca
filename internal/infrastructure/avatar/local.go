package avatar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/baechuer/contacts-service/internal/application/auth"
)

// LocalStorage writes into a temp dir first and then renames into the
// public dir, so a half-written file is never served.
type LocalStorage struct {
	tmpDir    string
	publicDir string
	baseURL   string // e.g. "/avatars"
}

func NewLocalStorage(tmpDir, publicDir, baseURL string) (*LocalStorage, error) {
	for _, d := range []string{tmpDir, publicDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create avatar dir %s: %w", d, err)
		}
	}
	return &LocalStorage{
		tmpDir:    tmpDir,
		publicDir: publicDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Save(ctx context.Context, filename string, img auth.ProcessedImage) (string, error) {
	name := filepath.Base(filename)
	if name != filename || name == "." || name == ".." {
		return "", fmt.Errorf("invalid avatar filename %q", filename)
	}

	tmp := filepath.Join(s.tmpDir, name)
	if err := os.WriteFile(tmp, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("write temp avatar: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, filepath.Join(s.publicDir, name)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move avatar: %w", err)
	}

	return s.baseURL + "/" + name, nil
}

// PublicDir is the directory served at the base URL.
func (s *LocalStorage) PublicDir() string { return s.publicDir }
