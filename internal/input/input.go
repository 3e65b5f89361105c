// Package input reads argument values that may name stdin (-) or a file
// (@file) instead of carrying the value inline.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadValue expands a single argument: "-" reads all of stdin, "@path" reads
// the file, a bare path to an existing file reads that file, anything else is
// returned as is.
func ReadValue(v string, stdin io.Reader) ([]byte, error) {
	switch {
	case v == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	case strings.HasPrefix(v, "@"):
		path := strings.TrimPrefix(v, "@")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
	if !strings.HasPrefix(strings.TrimSpace(v), "{") {
		if info, err := os.Stat(v); err == nil && !info.IsDir() {
			return os.ReadFile(v)
		}
	}
	return []byte(v), nil
}

// ReadLinesFromReader reads non-empty lines from a reader.
func ReadLinesFromReader(r io.Reader) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ExpandNames expands name arguments: "-" contributes one name per stdin line
// and "@file" one per file line. Stdin is read at most once.
func ExpandNames(values []string, stdin io.Reader) ([]string, error) {
	var result []string
	stdinUsed := false
	for _, v := range values {
		switch {
		case v == "-":
			if stdinUsed {
				continue
			}
			stdinUsed = true
			result = append(result, ReadLinesFromReader(stdin)...)
		case strings.HasPrefix(v, "@"):
			path := strings.TrimPrefix(v, "@")
			file, err := os.Open(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			result = append(result, ReadLinesFromReader(file)...)
			file.Close()
		default:
			result = append(result, v)
		}
	}
	return result, nil
}
