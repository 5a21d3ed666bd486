package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/squareup/winagg/common"
	"github.com/squareup/winagg/engine"
	"github.com/squareup/winagg/errors"
	"muzzammil.xyz/jsonc"
)

// schema describes the input CSV.
type schema struct {
	// Table is the name queries select from, any name is accepted when empty.
	Table   string              `json:"table,omitempty"`
	Columns []common.ColumnInfo `json:"columns"`
}

func loadSchema(path string) (*schema, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	s := &schema{}
	if err := json.Unmarshal(jsonc.ToJSON(b), s); err != nil {
		return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("invalid schema %s: %v", path, err))
	}
	if len(s.Columns) == 0 {
		return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("schema %s has no columns", path))
	}
	seen := map[string]bool{}
	for _, col := range s.Columns {
		if col.Name == "" {
			return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("schema %s has a column without a name", path))
		}
		if seen[col.Name] {
			return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("schema %s has duplicate column %s", path, col.Name))
		}
		seen[col.Name] = true
		if col.Type == common.TypeUnknown {
			return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("column %s has no type", col.Name))
		}
	}
	return s, nil
}

func (s *schema) checkTable(table string) error {
	if s.Table != "" && !strings.EqualFold(s.Table, table) {
		return errors.NewInvalidStatementError(fmt.Sprintf("unknown table %s, the input is %s", table, s.Table))
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	return f, func() { common.InvokeCloser(f) }, nil
}

func createOutput(path string) (*os.File, error) {
	f, err := os.Create(path)
	return f, errors.WithStack(err)
}

func readCSV(in io.Reader, columns []common.ColumnInfo, header bool) (*engine.Dataset, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = len(columns)
	reader.ReuseRecord = true
	ds := engine.NewDataset(columns)
	colTypes := ds.ColumnTypes()
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return ds, nil
		}
		line++
		if err != nil {
			return nil, errors.NewCodecError("%v", err)
		}
		if header && line == 1 {
			for i, name := range record {
				if strings.TrimSpace(name) != columns[i].Name {
					return nil, errors.NewCodecError("header column %d is %s, schema has %s", i, name, columns[i].Name)
				}
			}
			continue
		}
		values := make([]interface{}, len(columns))
		for i, field := range record {
			v, err := common.ParseValue(field, colTypes[i])
			if err != nil {
				return nil, errors.NewCodecError("line %d, column %s: %v", line, columns[i].Name, err)
			}
			values[i] = v
		}
		ds.Rows = append(ds.Rows, common.NewRow(values...))
	}
}

// writeCSV writes the header and rows of ds. On a terminal the header is highlighted.
func writeCSV(out io.Writer, ds *engine.Dataset, highlightHeader bool) error {
	names := ds.ColumnNames()
	w := csv.NewWriter(out)
	if highlightHeader {
		header := color.New(color.FgCyan, color.Bold)
		if _, err := header.Fprintln(out, strings.Join(names, ",")); err != nil {
			return errors.WithStack(err)
		}
	} else if err := w.Write(names); err != nil {
		return errors.WithStack(err)
	}
	record := make([]string, len(names))
	for _, row := range ds.Rows {
		for i := range record {
			record[i] = common.FormatValue(row.Value(i))
		}
		if err := w.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	w.Flush()
	return errors.WithStack(w.Error())
}
