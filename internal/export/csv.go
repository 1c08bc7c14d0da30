package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/kurochkinivan/docuextract/internal/domain"
)

const dateLayout = "2006-01-02"

// CSV renders the export document. It returns nil without error when no document is
// eligible.
func CSV(docs []domain.Document) ([]byte, error) {
	if Eligible(docs) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	enc := csvutil.NewEncoder(w)
	if err := enc.EncodeHeader(Row{}); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}

	for _, row := range Rows(docs) {
		if err := enc.Encode(row); err != nil {
			return nil, fmt.Errorf("failed to encode row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

// FileName returns the export file name stamped with the batch date.
func FileName(date time.Time, ext string) string {
	return fmt.Sprintf("extracted_data_%s.%s", date.Format(dateLayout), ext)
}
