package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ErrNotStruct is returned when the row type is not a struct.
var ErrNotStruct = errors.New("export: row type must be a struct")

// Table is a CSV document read back into memory.
type Table struct {
	Header  []string
	Records [][]string
}

type column struct {
	name  string
	index int
}

func columns(t reflect.Type) ([]column, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("csv"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		cols = append(cols, column{name: name, index: i})
	}
	return cols, nil
}

// Header returns the CSV column names of T, taken from its csv struct tags.
func Header[T any]() ([]string, error) {
	cols, err := columns(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out, nil
}

// WriteCSV writes a header row and one record per element of rows. NULL
// pointers are written as empty cells.
func WriteCSV[T any](w io.Writer, rows []T) error {
	cols, err := columns(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	record := make([]string, len(cols))
	for n := range rows {
		v := reflect.ValueOf(&rows[n]).Elem()
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				continue
			}
			v = v.Elem()
		}
		for i, c := range cols {
			record[i] = format(v.Field(c.index))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row %d: %w", n+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func format(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	}
	return fmt.Sprint(v.Interface())
}

// ReadCSV reads a CSV document produced by WriteCSV (or any CSV with a
// header row). A leading UTF-8 byte order mark is ignored.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("export: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("export: read records: %w", err)
	}
	return Table{Header: header, Records: records}, nil
}

// Filename builds a stable download name such as
// "flagged_providers_20240501.csv".
func Filename(name string, now time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", name, now.Format("20060102"), strings.TrimPrefix(ext, "."))
}
