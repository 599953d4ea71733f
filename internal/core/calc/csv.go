package calc

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"timetrack.service/internal/core/model"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"Fecha", "Hora Entrada", "Hora Salida", "Pausas (min)", "Total Horas"}

const (
	clockLayout     = "15:04"
	missingClockOut = "-"
	hoursPrecision  = 2
)

// WriteCSV writes entries in input order. Clock times are rendered in loc when it is not nil.
func WriteCSV(w io.Writer, entries []model.TimeEntry, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(csvRow(e, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ToCSV renders entries as a CSV document without a trailing newline.
func ToCSV(entries []model.TimeEntry, loc *time.Location) string {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = WriteCSV(&buf, entries, loc)
	return strings.TrimSuffix(buf.String(), "\n")
}

func csvRow(e model.TimeEntry, loc *time.Location) []string {
	clockOut := missingClockOut
	if e.ClockOut != nil {
		clockOut = formatClock(*e.ClockOut, loc)
	}
	return []string{
		e.Date,
		formatClock(e.ClockIn, loc),
		clockOut,
		strconv.FormatInt(PauseDurationMinutes(e.Pauses), 10),
		strconv.FormatFloat(EntryHours(e), 'f', hoursPrecision, 64),
	}
}

func formatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(clockLayout)
}
