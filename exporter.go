package visualekf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Exporter defines an export interface for world-frame tag tracks.
type Exporter interface {
	Write(k int, tags []*mat.VecDense) error
	Close() error
}

// CSVExporter writes one row per state sample with the world-frame x, y, z
// of each tag, for plotting and debugging. Returned by NewCSVExporter.
type CSVExporter struct {
	delimiter string
	numTags   int
	hdlr      *os.File
}

// Close closes the file.
func (e CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s\n", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}

// Write writes the world-frame tag positions of sample k to the CSV file.
func (e CSVExporter) Write(k int, tags []*mat.VecDense) error {
	if len(tags) != e.numTags {
		return fmt.Errorf("expected %d tags, got %d", e.numTags, len(tags))
	}
	vals := make([]string, 1+3*len(tags))
	vals[0] = fmt.Sprintf("%d", k)
	for i, tag := range tags {
		for j := 0; j < 3; j++ {
			vals[1+3*i+j] = fmt.Sprintf("%f", tag.AtVec(j))
		}
	}
	_, err := e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// NewCSVExporter initializes a new CSV export for the given tag count.
func NewCSVExporter(numTags int, filepath, filename string) (e *CSVExporter, err error) {
	f, err := os.Create(fmt.Sprintf("%s/%s", filepath, filename))
	if err != nil {
		return
	}
	delimiter := ","
	hdr := make([]string, 1+3*numTags)
	hdr[0] = "k"
	for i := 0; i < numTags; i++ {
		hdr[1+3*i] = fmt.Sprintf("tag%d_x", i)
		hdr[1+3*i+1] = fmt.Sprintf("tag%d_y", i)
		hdr[1+3*i+2] = fmt.Sprintf("tag%d_z", i)
	}
	f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now(), strings.Join(hdr, delimiter)))
	e = &CSVExporter{delimiter, numTags, f}
	return
}
