package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-code-activity/internal/util"
)

// FileScanner finds build and run log files under a directory
type FileScanner struct {
	baseDir string
	ext     string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{
		baseDir: baseDir,
		ext:     ".jsonl",
	}
}

// BaseDir returns the scanned directory
func (s *FileScanner) BaseDir() string {
	return s.baseDir
}

// Scan walks the directory and returns every .jsonl path in lexical order.
// Unreadable entries are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", s.baseDir))

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
			return nil
		}

		if info.IsDir() {
			if path != s.baseDir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			dirCount++
			return nil
		}

		totalCount++
		if strings.EqualFold(filepath.Ext(path), s.ext) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d log files",
		time.Since(start), dirCount, totalCount, len(files)))

	return files, err
}
