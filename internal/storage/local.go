package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type LocalStorage struct {
	outputDir string
}

func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{outputDir: outputDir}
}

func (s *LocalStorage) Dir() string {
	return s.outputDir
}

func (s *LocalStorage) Save(_ context.Context, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid media name %q", name)
	}

	if err := s.EnsureDirectories(); err != nil {
		return "", err
	}

	path := filepath.Join(s.outputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	return path, nil
}

// List returns stored media file names, newest first. Names carry their
// creation time as a "-<unixnano>" suffix; the file mod time is used for
// names without one.
func (s *LocalStorage) List() ([]string, error) {
	entries, err := os.ReadDir(s.outputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	type item struct {
		name  string
		stamp int64
	}

	var items []item
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".png" && ext != ".mp4" {
			continue
		}
		stamp, ok := nameStamp(entry.Name())
		if !ok {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			stamp = info.ModTime().UnixNano()
		}
		items = append(items, item{name: entry.Name(), stamp: stamp})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].stamp != items[j].stamp {
			return items[i].stamp > items[j].stamp
		}
		return items[i].name > items[j].name
	})

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.name)
	}
	return names, nil
}

func nameStamp(name string) (int64, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndex(base, "-")
	if i < 0 {
		return 0, false
	}
	stamp, err := strconv.ParseInt(base[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return stamp, true
}

func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
