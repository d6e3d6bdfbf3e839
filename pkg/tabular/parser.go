// Package tabular turns loosely formatted delimited text into blocos.
package tabular

import (
	"log"
	"math"
	"strconv"
	"strings"

	"blocosrj/internal/models"
)

// Stats describes what happened to the rows of one Parse call.
type Stats struct {
	Separator rune
	Rows      int // data rows after blank-line removal
	Kept      int
	Blank     int // rows whose every field is empty
	Invalid   int // rows missing name, address or start time
}

// Parse returns the blocos found in raw. Unsupported input yields an empty slice.
func Parse(raw string) []models.Bloco {
	blocos, _ := ParseWithStats(raw)
	return blocos
}

// ParseWithStats is Parse plus row accounting for logs and metrics.
func ParseWithStats(raw string) ([]models.Bloco, Stats) {
	var stats Stats
	lines := splitLines(raw)
	if len(lines) == 0 {
		log.Println("tabular: input is empty after normalization")
		return nil, stats
	}

	sep, ok := DetectSeparator(lines[0])
	if !ok {
		log.Printf("tabular: unsupported format, no separator found in header %q", lines[0])
		return nil, stats
	}
	stats.Separator = sep

	headers := SplitLine(lines[0], sep)
	for i, h := range headers {
		headers[i] = NormalizeHeader(h)
	}

	var blocos []models.Bloco
	for _, line := range lines[1:] {
		stats.Rows++
		values := SplitLine(line, sep)
		if allEmpty(values) {
			stats.Blank++
			continue
		}
		b, ok := buildBloco(headers, values)
		if !ok {
			stats.Invalid++
			continue
		}
		blocos = append(blocos, b)
	}
	stats.Kept = len(blocos)
	return blocos, stats
}

// splitLines drops blank lines. Kept lines are not trimmed: a leading separator
// marks an empty first field.
func splitLines(raw string) []string {
	raw = strings.TrimPrefix(raw, "\ufeff")
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func allEmpty(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func buildBloco(headers, values []string) (models.Bloco, bool) {
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		v := strings.TrimSpace(values[i])
		if _, seen := row[h]; !seen || row[h] == "" {
			row[h] = v
		}
	}

	b := models.Bloco{
		Name:         row[FieldName],
		Address:      row[FieldAddress],
		Neighborhood: row[FieldNeighborhood],
		Date:         row[FieldDate],
		StartTime:    row[FieldStartTime],
		Latitude:     parseCoordinate(row[FieldLatitude]),
		Longitude:    parseCoordinate(row[FieldLongitude]),
	}
	if b.Name == "" || b.Address == "" || b.StartTime == "" {
		return models.Bloco{}, false
	}
	b.ID = models.BlocoID(b.Name, b.Date, b.StartTime, b.Address)
	return b, true
}

// parseCoordinate accepts a comma as decimal separator. Non-finite values are absent.
func parseCoordinate(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
