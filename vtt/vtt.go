// Package vtt parses WebVTT subtitle documents into timed cues.
package vtt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Cue is a single timed caption.
type Cue struct {
	// ID is the optional cue identifier line.
	ID string

	// Start and End bound the interval the cue is shown for.
	Start, End time.Duration

	// Text is the caption payload with markup tags stripped.
	Text string
}

// Parse reads a WebVTT document and returns its cues in document
// order. Blocks without a valid timing line (NOTE, STYLE, REGION)
// are skipped.
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("VTT: Document is empty")
	}

	header := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "\uFEFF")
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, fmt.Errorf("VTT: Document does not start with a WEBVTT header")
	}

	var cues []Cue

	for {
		block, more := readBlock(scanner)
		if len(block) > 0 {
			if cue, ok := parseCue(block); ok {
				cues = append(cues, cue)
			}
		}
		if !more {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("VTT: %w", err)
	}

	return cues, nil
}

// readBlock collects lines until a blank line or EOF.
func readBlock(scanner *bufio.Scanner) ([]string, bool) {
	var lines []string

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if len(lines) == 0 {
				continue
			}

			return lines, true
		}

		lines = append(lines, line)
	}

	return lines, false
}

// parseCue interprets one block. The first line may be a cue
// identifier; the timing line holds "start --> end" with optional
// settings after the end timestamp.
func parseCue(block []string) (Cue, bool) {
	var cue Cue

	timing := 0
	if !strings.Contains(block[0], "-->") {
		if len(block) < 2 || !strings.Contains(block[1], "-->") {
			return cue, false
		}

		cue.ID = strings.TrimSpace(block[0])
		timing = 1
	}

	parts := strings.SplitN(block[timing], "-->", 2)
	if len(parts) != 2 {
		return cue, false
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return cue, false
	}

	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return cue, false
	}

	end, err := parseTimestamp(endField[0])
	if err != nil || end < start {
		return cue, false
	}

	cue.Start, cue.End = start, end
	cue.Text = stripTags(strings.Join(block[timing+1:], "\n"))

	return cue, true
}

// parseTimestamp accepts HH:MM:SS.mmm and MM:SS.mmm forms, with
// either '.' or ',' before the milliseconds.
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.ReplaceAll(ts, ",", ".")

	var hours, minutes int

	fields := strings.Split(ts, ":")
	switch len(fields) {
	case 3:
		h, err := strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("VTT: Invalid hours in timestamp %q", ts)
		}

		hours = h
		fields = fields[1:]

	case 2:

	default:
		return 0, fmt.Errorf("VTT: Invalid timestamp %q", ts)
	}

	minutes, err := strconv.Atoi(fields[0])
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("VTT: Invalid minutes in timestamp %q", ts)
	}

	seconds, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("VTT: Invalid seconds in timestamp %q", ts)
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))

	return total, nil
}

// stripTags removes HTML-like markup (<b>, <i>, <c.classname>, voice
// spans) from cue text.
func stripTags(text string) string {
	var (
		sb    strings.Builder
		intag bool
	)

	for _, r := range text {
		switch {
		case r == '<':
			intag = true

		case r == '>':
			intag = false

		case !intag:
			sb.WriteRune(r)
		}
	}

	return strings.TrimSpace(sb.String())
}
