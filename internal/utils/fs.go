// Package utils carries the small filesystem, TOML and string helpers shared
// by the config layer and the CLI surfaces.
package utils

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// DirStatus is the outcome of checking a directory as a config location.
type DirStatus struct {
	Exists   bool
	Writable bool
	Err      error
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dirPath and any missing parents.
func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

// SaveTOMLFile encodes data as TOML at filePath, replacing previous content.
func SaveTOMLFile(data interface{}, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		log.Errorf("Failed to create %s: %v", filePath, err)
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(data)
}

// GetAbsolutePath resolves path for display. An empty path is reported as
// unknown; a path that cannot be made absolute comes back unchanged.
func GetAbsolutePath(path string) string {
	if path == "" {
		return "unknown"
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	}
	return path
}

// canWrite checks write access by creating and removing a scratch file,
// which catches read-only mounts that a mode check would miss.
func canWrite(dirPath string) bool {
	scratch := filepath.Join(dirPath, ".omniserve_write_check")
	f, err := os.Create(scratch)
	if err != nil {
		log.Warnf("Cannot write to %s: %v", dirPath, err)
		return false
	}
	f.Close()
	os.Remove(scratch)
	return true
}

// GetExecutableDir returns the directory holding the running binary, the
// last-resort config location when no home directory is usable.
func GetExecutableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}

// CheckDirStatus stats dirPath, creating it when absent, and reports
// whether it can hold the config file.
func CheckDirStatus(dirPath string) DirStatus {
	var st DirStatus
	if _, err := os.Stat(dirPath); err == nil {
		st.Exists = true
		st.Writable = canWrite(dirPath)
		return st
	}
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		st.Err = err
		log.Warnf("Cannot create %s: %v", dirPath, err)
		return st
	}
	st.Exists = true
	st.Writable = canWrite(dirPath)
	return st
}
