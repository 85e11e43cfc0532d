// Package exchange moves shop records in and out of the system: delimited-text import and
// export, list-literal relation cells, transactional row application and cached JSON snapshots.
package exchange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when the caller does not name one.
const DefaultEncoding = "utf-8"

var (
	// ErrMalformedFile marks input that cannot be read as delimited text at all.
	ErrMalformedFile = errors.New("exchange: malformed file")
	// ErrMissingHeader is returned when the input has no header row.
	ErrMissingHeader = fmt.Errorf("%w: header row is required", ErrMalformedFile)
	// ErrUnknownEncoding is returned for encoding names that cannot be resolved.
	ErrUnknownEncoding = fmt.Errorf("%w: unknown encoding", ErrMalformedFile)
)

// Row is one data row keyed by header name. Columns missing from a short row are absent from Fields.
// Non-blank cells past the last header column are kept in Extra.
type Row struct {
	Line   int
	Fields map[string]string
	Extra  []string
}

// Get returns the cell for column and whether the column was present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// GetOr returns the cell for column, or fallback when the column is absent.
func (r Row) GetOr(column, fallback string) string {
	if v, ok := r.Fields[column]; ok {
		return v
	}
	return fallback
}

// Reader yields header-keyed rows from a delimited byte stream in a caller-chosen encoding.
type Reader struct {
	csv     *csv.Reader
	header  []string
	line    int
	encName string
}

// ReaderOption configures a Reader.
type ReaderOption func(*csv.Reader)

// WithDelimiter overrides the field delimiter (default ',').
func WithDelimiter(d rune) ReaderOption {
	return func(r *csv.Reader) {
		r.Comma = d
	}
}

// NewReader decodes src from encodingName, strips a byte-order mark and reads the header row.
// Bytes that are invalid in the chosen encoding surface as ErrMalformedFile from Next.
func NewReader(src io.Reader, encodingName string, opts ...ReaderOption) (*Reader, error) {
	enc, name, err := resolveEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	decoder := enc.NewDecoder().Transformer
	if name == DefaultEncoding {
		decoder = encoding.UTF8Validator
	}
	decoded := transform.NewReader(src, unicode.BOMOverride(decoder))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	for _, opt := range opts {
		opt(cr)
	}

	r := &Reader{csv: cr, encName: name}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// Header returns the column names in file order.
func (r *Reader) Header() []string {
	return append([]string(nil), r.header...)
}

// Encoding returns the canonical name of the decoding in use.
func (r *Reader) Encoding() string {
	return r.encName
}

// HasColumn reports whether the header contains column.
func (r *Reader) HasColumn(column string) bool {
	for _, h := range r.header {
		if h == column {
			return true
		}
	}
	return false
}

// Next returns the next non-blank row, or io.EOF after the last one.
func (r *Reader) Next() (Row, error) {
	for {
		record, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, r.wrap(err)
		}
		line, _ := r.csv.FieldPos(0)
		r.line = line

		if isBlank(record) {
			continue
		}

		fields := make(map[string]string, len(r.header))
		for i, name := range r.header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}
		row := Row{Line: line, Fields: fields}
		if len(record) > len(r.header) && !isBlank(record[len(r.header):]) {
			row.Extra = append([]string(nil), record[len(r.header):]...)
		}
		return row, nil
	}
}

// ReadAll drains the reader.
func (r *Reader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func (r *Reader) readHeader() error {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return r.wrap(err)
	}

	seen := make(map[string]struct{}, len(record))
	header := make([]string, len(record))
	for i, name := range record {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrMissingHeader, i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate column %q", ErrMalformedFile, name)
		}
		seen[name] = struct{}{}
		header[i] = name
	}

	r.header = header
	r.line = 1
	return nil
}

func (r *Reader) wrap(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("%w: line %d: %v", ErrMalformedFile, parseErr.Line, parseErr.Err)
	}
	return fmt.Errorf("%w: after line %d: %v", ErrMalformedFile, r.line, err)
}

func resolveEncoding(name string) (encoding.Encoding, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w %q", ErrUnknownEncoding, name)
	}
	canonical, err := htmlindex.Name(enc)
	if err != nil {
		canonical = strings.ToLower(name)
	}
	return enc, canonical, nil
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
