package intelhex

import (
	"strings"
)

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// forEachLine calls fn with every non-empty line of text and its 1-based
// line number. Trailing blanks are dropped from each line, but a line made
// only of blanks is passed through unchanged.
func forEachLine(text string, fn func(num int, line string) error) error {
	for idx, line := range strings.Split(newlineReplacer.Replace(text), "\n") {
		if line == "" {
			continue
		}
		if trimmed := strings.TrimRight(line, " \t"); trimmed != "" {
			line = trimmed
		}
		if err := fn(idx+1, line); err != nil {
			return err
		}
	}
	return nil
}

// SplitLines splits text on \n, \r\n or \r and discards zero-length lines.
// Trailing spaces and tabs are trimmed; a line holding nothing else is kept
// as is so that parsing rejects it.
func SplitLines(text string) []string {
	var lines []string
	_ = forEachLine(text, func(_ int, line string) error {
		lines = append(lines, line)
		return nil
	})
	return lines
}

// ParseRecords parses every non-empty line of text. The first failing line
// aborts parsing and is reported as a *LineError.
func ParseRecords(text string, opts ...Option) ([]Record, error) {
	var records []Record
	err := forEachLine(text, func(num int, line string) error {
		r, err := ParseRecord(line, opts...)
		if err != nil {
			return &LineError{Line: num, Text: line, Err: err}
		}
		r.Line = num
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}
