package tabular

import "strings"

// Separators are tried in this order; the first wins a tie.
var Separators = []rune{',', ';', '\t'}

// SplitLine splits a delimited line honoring double-quoted fields. A doubled quote
// inside a quoted field is a literal quote, and sep inside quotes is plain text.
func SplitLine(line string, sep rune) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	rs := []rune(line)
	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(rs) && rs[i+1] == '"':
			current.WriteRune('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == sep && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(c)
		}
	}
	return append(fields, current.String())
}

// DetectSeparator picks the candidate producing the most columns on the header line.
// ok is false when no candidate yields more than one column.
func DetectSeparator(header string) (sep rune, ok bool) {
	best := 1
	for _, c := range Separators {
		if n := len(SplitLine(header, c)); n > best {
			best, sep = n, c
		}
	}
	return sep, best > 1
}
