package editor

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/khrees2412/applytrack/pkg/models"
)

var csvHeader = []string{"Company", "Position", "Status", "Date", "Location", "Salary", "URL", "Notes"}

var csvEscaper = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", ",", ";")

// CSVField makes s safe for an unquoted CSV field: commas become semicolons
// and line breaks become spaces.
func CSVField(s string) string {
	return csvEscaper.Replace(s)
}

// WriteApplicationsCSV writes a header and one row per application
func WriteApplicationsCSV(w io.Writer, apps []models.Application) error {
	bw := bufio.NewWriter(w)
	writeRow := func(fields []string) {
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(CSVField(f))
		}
		bw.WriteByte('\n')
	}

	writeRow(csvHeader)
	for _, a := range apps {
		writeRow([]string{a.Company, a.Position, string(a.Status), a.Date, a.Location, a.Salary, a.URL, a.Notes})
	}
	return bw.Flush()
}

// ExportFileName names the downloaded export
func ExportFileName(now time.Time) string {
	return "applications_" + now.Format(models.DateLayout) + ".csv"
}
