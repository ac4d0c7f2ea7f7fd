package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"storyloom/internal/model"
)

var csvHeader = []string{"ID", "Type", "Title", "Content", "Next", "Branches"}

// CSV writes one row per node: id, type, title, content, next and branch count.
func CSV(doc *model.Story) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, n := range doc.Nodes {
		row := []string{
			n.ID,
			typeLabel(n.Type),
			n.Title,
			n.Content,
			n.Next,
			strconv.Itoa(len(n.Branches)),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
