// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package queue

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// =============================================================================
// CSV EXPORT
// =============================================================================

// exportHeader is the column order of exported queue items.
var exportHeader = []string{
	"id",
	"sourceType",
	"sourceUrl",
	"status",
	"priority",
	"title",
	"description",
	"durationSeconds",
	"errorMessage",
	"createdAt",
	"updatedAt",
}

// ExportCSV writes the selected items as a delimited text file.
//
// # Description
//
// Any cell whose content begins with '=', '+', '-' or '@' is prefixed with
// a neutralizing single quote so it cannot trigger formula evaluation when
// the file is opened in spreadsheet tools. This is a hard correctness
// requirement, not a style choice: exported queue metadata is
// operator-supplied and source-supplied text and must be treated as
// hostile.
//
// # Inputs
//
//   - w: destination writer
//   - items: items to export, written in list order
//
// # Outputs
//
//   - error: the first write error, if any
func ExportCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for _, item := range items {
		row := []string{
			item.ID,
			string(item.SourceType),
			item.SourceURL,
			string(item.Status),
			strconv.Itoa(item.Priority),
			item.Title,
			item.Description,
			strconv.Itoa(item.DurationSeconds),
			item.ErrorMessage,
			item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			item.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		for i := range row {
			row[i] = neutralizeCell(row[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write export row for item %s: %w", item.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// neutralizeCell defangs spreadsheet formula injection.
//
// Cells starting with the formula trigger characters are prefixed with a
// single quote, which spreadsheet tools render as literal text.
func neutralizeCell(cell string) string {
	if cell == "" {
		return cell
	}
	if strings.ContainsAny(cell[:1], "=+-@") {
		return "'" + cell
	}
	return cell
}
