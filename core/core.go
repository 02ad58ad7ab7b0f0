package core

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTrimSet = "\r\n\t "

	// Name of the daemon.
	Name = "tdid"
	// Version of the daemon, reported by the management API.
	Version = "0.3.0"
)

// Trim remove trailing spaces from a string.
func Trim(s string) string {
	return strings.Trim(s, defaultTrimSet)
}

// Exists checks if a path exists.
func Exists(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}
	return true
}

// ExpandPath replaces '~' shorthand with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		usr, err := user.Current()
		if err != nil {
			return "", err
		}
		// Replace only the first occurrence of ~
		path = strings.Replace(path, "~", usr.HomeDir, 1)
	}
	return filepath.Abs(path)
}

// GetFileModTime checks if a file has been modified.
func GetFileModTime(filepath string) (time.Time, error) {
	fi, err := os.Stat(filepath)
	if err != nil || fi.IsDir() {
		return time.Now(), fmt.Errorf("GetFileModTime() Invalid file")
	}
	return fi.ModTime(), nil
}

// ConcatStrings joins the provided strings.
func ConcatStrings(args ...string) string {
	return strings.Join(args, "")
}
