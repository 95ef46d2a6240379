package backend

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"
)

// Format runs goimports over every .go file. A file that does not parse is
// a generator bug and is reported with its name.
func Format(files []File) error {
	for i := range files {
		if !strings.HasSuffix(files[i].Name, ".go") {
			continue
		}
		out, err := imports.Process(files[i].Name, files[i].Content, &imports.Options{
			Comments:  true,
			TabIndent: true,
			TabWidth:  8,
		})
		if err != nil {
			return fmt.Errorf("format %s: %w", files[i].Name, err)
		}
		files[i].Content = out
	}
	return nil
}

// Write formats files and installs them in dir.
func Write(dir string, files []File) error {
	if err := Format(files); err != nil {
		return err
	}
	return Install(dir, files)
}

// Install places already formatted files in dir as they are. Everything is
// first written to a temporary directory next to dir and only renamed into
// place once every file is staged, so a failed run leaves dir untouched.
// KeepExisting files are skipped when their destination already exists.
func Install(dir string, files []File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.MkdirTemp(filepath.Dir(filepath.Clean(dir)), ".evegen-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	for _, f := range files {
		if filepath.IsAbs(f.Name) || strings.Contains(f.Name, "..") {
			return fmt.Errorf("file name %q escapes the output directory", f.Name)
		}
		path := filepath.Join(tmp, f.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("stage %s: %w", f.Name, err)
		}
		if err := os.WriteFile(path, f.Content, 0o644); err != nil {
			return fmt.Errorf("stage %s: %w", f.Name, err)
		}
	}

	for _, f := range files {
		dst := filepath.Join(dir, f.Name)
		if f.KeepExisting {
			if _, err := os.Stat(dst); err == nil {
				slog.Debug("keeping existing file", "file", dst)
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", dst, err)
			}
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("install %s: %w", f.Name, err)
		}
		if err := os.Rename(filepath.Join(tmp, f.Name), dst); err != nil {
			return fmt.Errorf("install %s: %w", f.Name, err)
		}
		slog.Debug("wrote file", "file", dst, "bytes", len(f.Content))
	}
	return nil
}
