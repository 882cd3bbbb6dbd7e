package extraction

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"golang.org/x/net/context"
)

// imageExtensions are the container formats the validation pipeline accepts.
// Everything else inside an archive is skipped rather than rejected, so one
// stray readme does not fail a whole batch.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// IsImagePath reports whether path carries a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// shouldIgnore filters archive junk: macOS resource forks, hidden files and
// Windows thumbnail stores.
func shouldIgnore(name string) bool {
	if name == "" {
		return true
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "._") {
		return true
	}
	return strings.EqualFold(name, "thumbs.db")
}

// ExtractImages extracts every image file in the archive into a fresh
// temporary directory and returns their paths together with the directory.
// The caller removes the directory when done. Nested directories inside the
// archive are preserved.
func ExtractImages(archivePath string) ([]string, string, error) {
	destDir, err := os.MkdirTemp("", "batch-extract-*")
	if err != nil {
		return nil, "", err
	}

	ctx := context.Background()
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		os.RemoveAll(destDir)
		return nil, "", err
	}

	var files []string
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if shouldIgnore(filepath.Base(path)) || !IsImagePath(path) {
			return nil
		}

		reader, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer reader.Close()

		destPath := filepath.Join(destDir, path)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer outFile.Close()

		if _, err := io.Copy(outFile, reader); err != nil {
			return err
		}

		files = append(files, destPath)
		return nil
	})
	if err != nil {
		os.RemoveAll(destDir)
		return nil, "", err
	}

	return files, destDir, nil
}
