package datastore

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
)

// ExportCSV writes every detection to w as CSV with a header row, in id
// order. It returns the number of rows written.
func ExportCSV(ctx context.Context, ds Interface, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(Detection{}); err != nil {
		return 0, err
	}

	rows := 0
	err := ds.AllDetections(ctx, func(batch []Detection) error {
		if err := enc.Encode(batch); err != nil {
			return err
		}
		rows += len(batch)
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return rows, err
	}

	cw.Flush()
	return rows, cw.Error()
}
