package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// tleLineLen is the fixed width of a NORAD element line. Lines of any other
// length would be mis-sliced by fixed-column parsers downstream, so the
// parser rejects them here.
const tleLineLen = 69

// Parse reads element sets from r in either 3-line (name, line 1, line 2) or
// bare 2-line format and returns the parsed entries. The two formats may be
// mixed in one stream. Malformed entries are skipped with a warning; only a
// read failure returns an error.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i < len(lines); {
		name := ""
		if !strings.HasPrefix(lines[i], "1 ") {
			// 3-line format: this is the name line.
			name = strings.TrimSpace(lines[i])
			i++
			if i >= len(lines) {
				logger.Warn("dangling name line at end of TLE data", "name", name)
				break
			}
		}
		if i+1 >= len(lines) {
			logger.Warn("truncated TLE entry at end of data", "name", name)
			break
		}

		line1, line2 := lines[i], lines[i+1]
		entry, err := parseEntry(name, line1, line2)
		if err != nil {
			logger.Warn("skipping malformed TLE entry", "name", name, "line_index", i, "error", err)
			// Resync at the next plausible name or line-1 boundary.
			i++
			continue
		}

		entries = append(entries, entry)
		i += 2
	}

	return entries, nil
}

func parseEntry(name, line1, line2 string) (TLEEntry, error) {
	if len(line1) != tleLineLen {
		return TLEEntry{}, fmt.Errorf("line 1 is %d characters, want %d", len(line1), tleLineLen)
	}
	if len(line2) != tleLineLen {
		return TLEEntry{}, fmt.Errorf("line 2 is %d characters, want %d", len(line2), tleLineLen)
	}
	if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		return TLEEntry{}, fmt.Errorf("bad line prefixes %q / %q", line1[:2], line2[:2])
	}

	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("invalid NORAD ID %q", noradStr)
	}

	epoch, err := parseEpoch(strings.TrimSpace(line1[18:32]))
	if err != nil {
		return TLEEntry{}, err
	}

	if name == "" {
		name = fmt.Sprintf("NORAD %d", noradID)
	}

	return TLEEntry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// parseEpoch converts a TLE epoch in YYDDD.DDDDDDDD form to a UTC time.
// Two-digit years 57-99 map to the 1900s, 00-56 to the 2000s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}

	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year in %q: %w", s, err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day in %q: %w", s, err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %.8f out of range", dayOfYear)
	}

	// Day 1.0 is 00:00 UTC on January 1.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
