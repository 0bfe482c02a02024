package watch

import (
	"bytes"
	"crypto/sha256"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type FileChangeType rune

func (f FileChangeType) String() string { return string(f) }

const (
	FileAdded   FileChangeType = '+'
	FileRemoved FileChangeType = '-'
	FileChanged FileChangeType = '*'
)

type FileHashes map[string][]byte

// CompareFileHashes compares the hashes of the files in the oldFiles and newFiles maps.
//
// Returns true if the hashes are equal, false otherwise.
//
// If false, the returned string will be a file that caused the difference and the
// returned FileChangeType will be the type of change that occurred.
func CompareFileHashes(oldFiles, newFiles FileHashes) (FileChangeType, string, bool) {
	for key, hash1 := range oldFiles {
		hash2, exists := newFiles[key]
		if !exists {
			return FileRemoved, key, false
		}
		if !bytes.Equal(hash1, hash2) {
			return FileChanged, key, false
		}
	}

	for key := range newFiles {
		if _, exists := oldFiles[key]; !exists {
			return FileAdded, key, false
		}
	}

	return ' ', "", true
}

// computeFileHashes computes the SHA256 hash of files under dir matching any
// of the given doublestar patterns.
func computeFileHashes(dir string, patterns []string) (FileHashes, error) {
	fileHashes := make(FileHashes)
	err := filepath.WalkDir(dir, func(srcPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			// Build outputs and dependency trees are never watched.
			switch entry.Name() {
			case "node_modules", "dist", ".git":
				return filepath.SkipDir
			}
			return nil
		}
		hash, matched, err := computeFileHash(dir, srcPath, patterns)
		if err != nil {
			return err
		}
		if matched {
			fileHashes[srcPath] = hash
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fileHashes, nil
}

func computeFileHash(dir, srcPath string, patterns []string) ([]byte, bool, error) {
	relativePath, err := filepath.Rel(dir, srcPath)
	if err != nil {
		return nil, false, err
	}
	// doublestar matches on forward slashes only.
	relativePath = strings.ReplaceAll(relativePath, string(os.PathSeparator), "/")
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, relativePath)
		if err != nil {
			return nil, false, err
		}
		if !match {
			continue
		}
		file, err := os.Open(srcPath)
		if err != nil {
			return nil, false, err
		}
		hasher := sha256.New()
		if _, err := io.Copy(hasher, file); err != nil {
			_ = file.Close()
			return nil, false, err
		}
		if err := file.Close(); err != nil {
			return nil, false, err
		}
		return hasher.Sum(nil), true, nil
	}
	return nil, false, nil
}
