package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// ExportEntry is the flat debug view of one stage record.
type ExportEntry struct {
	Stage        string `json:"stage"`
	StageClass   string `json:"stageClass"`
	Model        string `json:"model"`
	Duration     int64  `json:"duration"` // milliseconds
	Timestamp    string `json:"timestamp"`
	SystemPrompt string `json:"systemPrompt"`
	UserPrompt   string `json:"userPrompt"`
	Response     string `json:"response"`
	Parsed       any    `json:"parsed"`
	Error        string `json:"error,omitempty"`
}

// Export flattens records into export entries, preserving order.
func Export(records []StageRecord) []ExportEntry {
	entries := make([]ExportEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, ExportEntry{
			Stage:        r.StageID,
			StageClass:   r.Class,
			Model:        r.Model,
			Duration:     r.Duration.Milliseconds(),
			Timestamp:    r.StartedAt.UTC().Format(time.RFC3339),
			SystemPrompt: r.SystemPrompt,
			UserPrompt:   r.UserPrompt,
			Response:     r.RawResponseText,
			Parsed:       r.Parsed,
			Error:        r.Err,
		})
	}
	return entries
}

// WriteExport writes the records to w as an indented JSON array.
func WriteExport(w io.Writer, records []StageRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Export(records)); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
