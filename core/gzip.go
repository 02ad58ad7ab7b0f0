package core

import (
	"compress/gzip"
	"io/ioutil"
	"os"
	"strings"
)

// ReadGzipFile reads a gzip to text.
func ReadGzipFile(filename string) ([]byte, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	gz, err := gzip.NewReader(fd)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return ioutil.ReadAll(gz)
}

// ReadProgram reads a program description, plain or gzipped (.gz suffix).
// A leading '~' is expanded to the user's home.
func ReadProgram(path string) ([]byte, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		return ReadGzipFile(path)
	}
	return ioutil.ReadFile(path)
}
