// Package textutil holds byte-level checks on source text.
package textutil

import "bytes"

// SniffLength is how many leading bytes IsBinary looks at.
const SniffLength = 8000

// IsBinary reports whether a NUL byte occurs in the first SniffLength bytes.
// No Python source file contains one.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > SniffLength {
		sniff = sniff[:SniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines counts newline-terminated lines, plus a final unterminated one.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}
