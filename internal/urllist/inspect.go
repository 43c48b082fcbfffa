// Package urllist inspects a target-list CSV before it is uploaded, so
// obviously broken files are caught locally instead of after a round
// trip. The server runs its own parser; this pre-flight mirrors its
// counting (valid, invalid, duplicates removed) without being
// authoritative.
package urllist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ErrNoTargets means the file contains no usable target URLs. Uploading
// it would only produce a server-side rejection.
var ErrNoTargets = errors.New("no target URLs found")

const sampleSize = 5

// InvalidRow is one rejected row with the reason.
type InvalidRow struct {
	Line   int
	Value  string
	Reason string
}

// Report summarizes an inspected list. Valid counts unique usable URLs;
// Duplicates counts rows folded into an earlier one.
type Report struct {
	Total       int
	Valid       int
	Invalid     int
	Duplicates  int
	Sample      []string
	InvalidRows []InvalidRow
}

// Inspect reads a CSV of target URLs. The first non-empty cell of each
// row is the candidate; scheme-less entries are tried as https.
// Duplicate detection is case-insensitive on host and path. The report
// is returned even alongside ErrNoTargets so the caller can show what
// was rejected.
func Inspect(r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	report := &Report{}
	seen := make(map[string]struct{})

	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", line, err)
		}

		candidate := firstCell(record)
		if candidate == "" {
			continue
		}

		normalized, reason := normalizeURL(candidate)
		if reason != "" {
			// A first row that does not validate is taken for a
			// header row, not a bad target.
			if line == 1 {
				continue
			}
			report.Total++
			report.Invalid++
			report.InvalidRows = append(report.InvalidRows, InvalidRow{
				Line:   line,
				Value:  candidate,
				Reason: reason,
			})
			continue
		}

		report.Total++
		key := dedupKey(normalized)
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		report.Valid++
		if len(report.Sample) < sampleSize {
			report.Sample = append(report.Sample, normalized)
		}
	}

	if report.Valid == 0 {
		return report, ErrNoTargets
	}
	return report, nil
}

func firstCell(record []string) string {
	for _, cell := range record {
		if v := strings.TrimSpace(cell); v != "" {
			return v
		}
	}
	return ""
}

// normalizeURL validates a candidate and returns the URL as it will be
// submitted. A non-empty reason means the candidate is unusable.
func normalizeURL(candidate string) (string, string) {
	raw := candidate
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Sprintf("not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Sprintf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", "missing or incomplete host"
	}
	return u.String(), ""
}

func dedupKey(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return strings.ToLower(normalized)
	}
	path := strings.TrimSuffix(u.Path, "/")
	return strings.ToLower(u.Host + path)
}
