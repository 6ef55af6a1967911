package input

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mchmarny/raschctl/pkg/net"
	"github.com/mchmarny/raschctl/pkg/rasch"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for file extensions without a reader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var errNonFinite = errors.New("non-finite response value")

// ParseError points at the offending token of a text input.
type ParseError struct {
	Line   int
	Column string
	Token  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %q: cannot parse %q as a response (0, 1 or blank)", e.Line, e.Column, e.Token)
}

var idColumns = map[string]bool{
	"id":      true,
	"person":  true,
	"name":    true,
	"student": true,
}

var missingTokens = map[string]bool{
	"":   true,
	"na": true,
	".":  true,
	"-":  true,
}

// Document is the JSON and YAML form of a response matrix. Null responses
// are missing.
type Document struct {
	Items     []string     `json:"items" yaml:"items"`
	Persons   []string     `json:"persons,omitempty" yaml:"persons,omitempty"`
	Responses [][]*float64 `json:"responses" yaml:"responses"`
}

// Matrix validates the document and builds a ResponseMatrix.
func (d *Document) Matrix() (*rasch.ResponseMatrix, error) {
	if len(d.Persons) > 0 && len(d.Persons) != len(d.Responses) {
		return nil, fmt.Errorf("%w: %d person ids for %d response rows", rasch.ErrShape, len(d.Persons), len(d.Responses))
	}
	rows := make([][]float64, len(d.Responses))
	for i, r := range d.Responses {
		rows[i] = make([]float64, len(r))
		for j, v := range r {
			if v == nil {
				rows[i][j] = rasch.Missing
				continue
			}
			if math.IsNaN(*v) || math.IsInf(*v, 0) {
				return nil, &rasch.InvalidResponseValueError{Row: i, Column: j, Value: *v}
			}
			rows[i][j] = *v
		}
	}
	return rasch.NewResponseMatrix(d.Items, rows, rasch.WithPersonIDs(d.Persons))
}

// ReadMatrixFile reads a matrix, choosing the format by file extension.
func ReadMatrixFile(path string) (*rasch.ResponseMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	m, err := decodeMatrix(path, f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return m, nil
}

// ReadMatrix reads a matrix from a local file or an http(s) URL.
func ReadMatrix(ctx context.Context, src string) (*rasch.ResponseMatrix, error) {
	if !net.IsURL(src) {
		return ReadMatrixFile(src)
	}
	b, err := net.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	m, err := decodeMatrix(urlPath(src), bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", src, err)
	}
	return m, nil
}

func decodeMatrix(name string, r io.Reader) (*rasch.ResponseMatrix, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return ReadCSV(r)
	case ".json":
		return ReadJSON(r)
	case ".yaml", ".yml":
		return ReadYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// urlPath drops the query and fragment so the extension can be matched.
func urlPath(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	return u.Path
}

// ReadJSON decodes a Document.
func ReadJSON(r io.Reader) (*rasch.ResponseMatrix, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("error decoding json: %w", err)
	}
	return d.Matrix()
}

// ReadYAML decodes a Document.
func ReadYAML(r io.Reader) (*rasch.ResponseMatrix, error) {
	var d Document
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("error decoding yaml: %w", err)
	}
	return d.Matrix()
}

// ReadCSV reads a header of item names followed by one row per person. A
// first column named id, person, name or student holds person IDs. Blank,
// NA, "." and "-" cells are missing.
func ReadCSV(r io.Reader) (*rasch.ResponseMatrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", rasch.ErrShape)
		}
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	hasID := len(header) > 1 && idColumns[strings.ToLower(header[0])]
	items := header
	if hasID {
		items = header[1:]
	}

	var ids []string
	var rows [][]float64
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if hasID {
			ids = append(ids, strings.TrimSpace(rec[0]))
			rec = rec[1:]
		}
		row := make([]float64, len(rec))
		for j, tok := range rec {
			v, err := parseResponse(tok)
			if errors.Is(err, errNonFinite) {
				return nil, &rasch.InvalidResponseValueError{Row: len(rows), Column: j, Value: v}
			}
			if err != nil {
				col := ""
				if j < len(items) {
					col = items[j]
				}
				return nil, &ParseError{Line: line, Column: col, Token: tok}
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	var opts []rasch.MatrixOption
	if hasID {
		opts = append(opts, rasch.WithPersonIDs(ids))
	}
	return rasch.NewResponseMatrix(items, rows, opts...)
}

func parseResponse(tok string) (float64, error) {
	tok = strings.TrimSpace(tok)
	if missingTokens[strings.ToLower(tok)] {
		return rasch.Missing, nil
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	// only the missing tokens above may produce a missing cell
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, errNonFinite
	}
	return v, nil
}
