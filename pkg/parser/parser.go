package parser

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Record is one data line of an interval file, one cell per header field.
type Record []string

// Field is one header cell of the form name:type[:key].
type Field struct {
	Name string
	Type string
	Key  bool
}

func (f Field) String() string {
	s := f.Name + ":" + f.Type
	if f.Key {
		s += ":key"
	}
	return s
}

// ParseField splits a header cell.
func ParseField(cell string) (Field, error) {
	parts := strings.Split(strings.TrimSpace(cell), ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return Field{}, errors.Newf("malformed header cell %q, expected name:type[:key]", cell)
	}
	f := Field{Name: parts[0], Type: strings.ToLower(parts[1])}
	if len(parts) == 3 {
		if !strings.EqualFold(parts[2], "key") {
			return Field{}, errors.Newf("malformed header cell %q, unknown flag %q", cell, parts[2])
		}
		f.Key = true
	}
	return f, nil
}

// Parser reads tab-separated interval files. Lines starting with '#' are
// comments; the first remaining line is the header.
type Parser struct {
	file   *os.File
	reader *csv.Reader
	header []Field
	line   int
}

// NewParser opens filename and reads its header.
// Empty string or "-" reads from stdin.
func NewParser(filename string) (*Parser, error) {
	var file *os.File
	if filename == "" || filename == "-" {
		file = os.Stdin
	} else {
		f, err := os.Open(filename)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open file")
		}
		file = f
	}
	p, err := newParser(file, bufio.NewReader(file))
	if err != nil {
		file.Close()
		return nil, err
	}
	return p, nil
}

// NewReaderParser parses from r; Close is a no-op.
func NewReaderParser(r io.Reader) (*Parser, error) {
	return newParser(nil, r)
}

func newParser(file *os.File, r io.Reader) (*Parser, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	p := &Parser{file: file, reader: reader}
	cells, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("missing header line")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	seen := make(map[string]bool, len(cells))
	for _, cell := range cells {
		f, err := ParseField(cell)
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, errors.Newf("duplicate header field %q", f.Name)
		}
		seen[f.Name] = true
		p.header = append(p.header, f)
	}
	reader.FieldsPerRecord = len(p.header)
	p.line = 1
	return p, nil
}

// Header returns the parsed header fields.
func (p *Parser) Header() []Field { return p.header }

// Close closes the underlying file unless it is stdin.
func (p *Parser) Close() error {
	if p.file == nil || p.file == os.Stdin {
		return nil
	}
	return p.file.Close()
}

// Read returns the next record, or io.EOF. The returned slice is reused by
// the following call.
func (p *Parser) Read() (Record, error) {
	cells, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse record")
	}
	p.line++
	return Record(cells), nil
}

// Line is the number of lines consumed, header included.
func (p *Parser) Line() int { return p.line }

// ReadAll reads every remaining record.
func (p *Parser) ReadAll() ([]Record, error) {
	var records []Record
	for {
		r, err := p.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, append(Record(nil), r...))
	}
}

// ForEachRecord calls fn for each remaining record.
func (p *Parser) ForEachRecord(fn func(Record) error) error {
	for {
		r, err := p.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
}

// Writer emits interval files in the format Parser reads.
type Writer struct {
	w *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &Writer{w: cw}
}

func (w *Writer) WriteHeader(fields []Field) error {
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = f.String()
	}
	return w.w.Write(cells)
}

func (w *Writer) Write(r Record) error {
	return w.w.Write(r)
}

// Flush writes buffered data and reports any write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}
