// Package output persists and displays parsed records.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/ryan-d-young/edgar"
)

// Supported formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// ConflictError is returned when the destination already exists. The existing file is left untouched.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("output %s already exists", e.Path)
}

// FormatFromPath picks a format from the file extension, defaulting to json
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".csv":
		return FormatCSV
	default:
		return FormatJSON
	}
}

// Write creates path exclusively and encodes result into it.
// An empty format is inferred from the extension.
func Write(path string, result *edgar.Result, format string) error {
	if format == "" {
		format = FormatFromPath(path)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, result, format); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return &ConflictError{Path: path}
		}
		return fmt.Errorf("creating output: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

// Encode writes result to w in the given format, keeping the field order of the endpoint
func Encode(w io.Writer, result *edgar.Result, format string) error {
	switch format {
	case FormatJSON:
		return encodeJSON(w, result)
	case FormatYAML:
		return encodeYAML(w, result)
	case FormatCSV:
		return encodeCSV(w, result)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func encodeJSON(w io.Writer, result *edgar.Result) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, record := range result.Records {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, field := range result.Fields {
			if j > 0 {
				buf.WriteString(", ")
			}
			key, _ := json.Marshal(field)
			value, err := jsonValue(record[field])
			if err != nil {
				return fmt.Errorf("encoding %s: %w", field, err)
			}
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(value)
		}
		buf.WriteString("}")
	}
	if len(result.Records) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// jsonValue encodes decimals as bare numbers; json.Marshal would quote them
func jsonValue(value any) ([]byte, error) {
	if d, ok := value.(decimal.Decimal); ok {
		return []byte(d.String()), nil
	}
	return json.Marshal(value)
}

func encodeYAML(w io.Writer, result *edgar.Result) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, record := range result.Records {
		item := &yaml.Node{Kind: yaml.MappingNode}
		for _, field := range result.Fields {
			value, err := yamlValue(record[field])
			if err != nil {
				return fmt.Errorf("encoding %s: %w", field, err)
			}
			item.Content = append(item.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: field}, value)
		}
		doc.Content = append(doc.Content, item)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func yamlValue(value any) (*yaml.Node, error) {
	if d, ok := value.(decimal.Decimal); ok {
		tag := "!!float"
		if d.IsInteger() {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: d.String()}, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	return node, nil
}

func encodeCSV(w io.Writer, result *edgar.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Fields); err != nil {
		return err
	}
	row := make([]string, len(result.Fields))
	for _, record := range result.Records {
		for i, field := range result.Fields {
			row[i] = Cell(record[field])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Cell renders one record value as text
func Cell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case edgar.Date:
		return v.String()
	case decimal.Decimal:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
