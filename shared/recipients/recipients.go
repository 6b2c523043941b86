package recipients

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Recipient is one personalization target. Name drives the default text
// template; Fields carry the ordinal values used by marker replacement.
type Recipient struct {
	Name   string
	Fields []string
}

// Parse reads a recipient list from CSV. The first row is a header; a
// column named "name" (any case) is required and the remaining columns
// become ordered fields. A list with no usable rows is an error, since a
// job with zero recipients can do no work.
func Parse(r io.Reader) ([]Recipient, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("recipient list is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recipient header: %w", err)
	}

	nameCol := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), "name") {
			nameCol = i
			break
		}
	}
	if nameCol == -1 {
		return nil, fmt.Errorf("recipient list has no name column")
	}

	var out []Recipient
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read recipient row: %w", err)
		}
		if nameCol >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[nameCol])
		if name == "" {
			continue
		}

		rec := Recipient{Name: name}
		for i, v := range row {
			if i == nameCol {
				continue
			}
			rec.Fields = append(rec.Fields, strings.TrimSpace(v))
		}
		out = append(out, rec)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("recipient list has no usable rows")
	}
	return out, nil
}
