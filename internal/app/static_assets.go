package app

import (
	"os"
	"path/filepath"
)

// resolveClientDir finds the directory served at "/". A configured path
// that exists wins; otherwise a client directory next to or above the
// working directory or the executable is used.
func resolveClientDir(configured string) (string, bool) {
	if configured != "" {
		if dir, ok := existingDir(configured); ok {
			return dir, true
		}
	}
	var bases []string
	if cwd, err := os.Getwd(); err == nil {
		bases = append(bases, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		bases = append(bases, filepath.Dir(exe))
	}
	for _, base := range bases {
		if dir, ok := clientDirFrom(base); ok {
			return dir, true
		}
	}
	return "", false
}

func clientDirFrom(base string) (string, bool) {
	for _, candidate := range []string{
		filepath.Join(base, "client"),
		filepath.Join(base, "..", "client"),
	} {
		if dir, ok := existingDir(candidate); ok {
			return dir, true
		}
	}
	return "", false
}

func existingDir(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return abs, true
}
