package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/odelab/internal/dynamo"
)

type ExportData struct {
	Run   RunMetadata     `json:"run"`
	Trace []dynamo.Record `json:"trace"`
}

// WriteJSON writes a run and its trace as one indented JSON document.
// Non-finite values are written as strings.
func WriteJSON(w io.Writer, meta *RunMetadata, t *dynamo.Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Trace: t.Records()})
}

func ExportJSON(path string, meta *RunMetadata, t *dynamo.Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, meta, t)
}
