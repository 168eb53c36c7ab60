// Package export writes review data joined with author and title information
// to CSV or JSON streams.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/medialog/medialog/internal/repository"
)

// WriteCSV streams rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []repository.ReviewExportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "title", "userName", "userEmail", "comment", "score", "createdAt"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		comment := ""
		if row.Comment != nil {
			comment = *row.Comment
		}
		record := []string{
			row.ID,
			row.TitleName,
			row.UserName,
			row.UserEmail,
			comment,
			strconv.Itoa(row.Score),
			row.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

type jsonRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserName  string    `json:"userName"`
	UserEmail string    `json:"userEmail"`
	Comment   *string   `json:"comment,omitempty"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// WriteJSON streams rows as a JSON array.
func WriteJSON(w io.Writer, rows []repository.ReviewExportRow) error {
	out := make([]jsonRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, jsonRow{
			ID:        row.ID,
			Title:     row.TitleName,
			UserName:  row.UserName,
			UserEmail: row.UserEmail,
			Comment:   row.Comment,
			Score:     row.Score,
			CreatedAt: row.CreatedAt,
		})
	}
	return json.NewEncoder(w).Encode(out)
}
