package engine

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Charset maps CTC class indices (minus the blank) to dictionary tokens.
type Charset struct {
	tokens []string
}

// LoadCharset reads a dictionary file with one token per line. Blank
// lines are kept as literal spaces only when the file marks them that
// way; trailing newlines are trimmed.
func LoadCharset(path string) (*Charset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("dictionary %s is empty", path)
	}
	return &Charset{tokens: tokens}, nil
}

func (c *Charset) Size() int { return len(c.tokens) }

// LookupToken returns the token at idx, or "" when out of range.
func (c *Charset) LookupToken(idx int) string {
	if idx < 0 || idx >= len(c.tokens) {
		return ""
	}
	return c.tokens[idx]
}
