package formatter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/penwyp/go-code-activity/internal/util"
)

type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) Format(report Report) error {
	w := csv.NewWriter(f.w)

	headers := []string{"Timestamp", "Total Bytes", "Delta", "Synthetic"}
	if err := w.Write(headers); err != nil {
		return err
	}

	tp := util.GetTimeProvider()
	for _, s := range report.Series {
		record := []string{
			tp.Format(s.Timestamp, "2006-01-02T15:04:05Z07:00"),
			strconv.FormatUint(s.TotalBytes, 10),
			strconv.FormatInt(s.Delta, 10),
			strconv.FormatBool(s.Synthetic),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
