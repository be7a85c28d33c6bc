package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WriteCSV writes a header row followed by one line per row, with the
// shortest representation that reads back to the same float.
func (f *Frame) WriteCSV(w io.Writer) (err error) {
	cw := csv.NewWriter(w)
	if err = cw.Write(f.Names); err != nil {
		return
	}
	record := make([]string, f.NCols())
	for i := 0; i < f.Len(); i++ {
		for j, v := range f.Row(i) {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err = cw.Write(record); err != nil {
			return
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (f *Frame, err error) {
	cr := csv.NewReader(r)
	var header []string
	if header, err = cr.Read(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for j := range header {
		header[j] = strings.TrimSpace(header[j])
	}
	f = NewFrame(header...)
	for line := 2; ; line++ {
		var record []string
		if record, err = cr.Read(); err == io.EOF {
			return f, nil
		} else if err != nil {
			return nil, err
		}
		for _, field := range record {
			var v float64
			if v, err = strconv.ParseFloat(strings.TrimSpace(field), 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			f.Data = append(f.Data, v)
		}
	}
}

func (f *Frame) WriteFile(path string) (err error) {
	var file *os.File
	if file, err = os.Create(path); err != nil {
		return
	}
	if err = f.WriteCSV(file); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

func ReadFile(path string) (f *Frame, err error) {
	var file *os.File
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	if f, err = ReadCSV(file); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return
}
