// Package words reads line oriented word lists.
package words

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Read returns one word per non-blank line of r, with surrounding space removed.
// Duplicates are kept.
func Read(r io.Reader) ([]string, error) {
	var out []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.TrimSpace(scanner.Text())
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFile is Read() on the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return w, nil
}

// Distinct returns the set of words in w.
func Distinct(w []string) map[string]struct{} {
	m := make(map[string]struct{}, len(w))
	for _, s := range w {
		m[s] = struct{}{}
	}
	return m
}
