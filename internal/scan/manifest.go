package scan

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/text/encoding/charmap"
)

// Manifest encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// delimiters are the candidate field separators, in tie-break order.
var delimiters = []rune{',', ';', '\t', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Manifest is a parsed label file. Every value is raw text.
type Manifest struct {
	// Header holds the column names of the first record.
	Header []string

	// Rows are data records, padded or truncated to len(Header).
	Rows [][]string

	// Delimiter is the detected field separator.
	Delimiter rune

	// Encoding is EncodingUTF8 or EncodingLatin1.
	Encoding string
}

// ReadManifest reads and parses the manifest at path.
//
// The bytes are decoded as UTF-8 (a leading byte order mark is dropped) and
// fall back to Latin-1 when they are not valid UTF-8. The delimiter is
// detected from the header line. Blank lines are skipped.
func ReadManifest(fs billy.Filesystem, path string) (*Manifest, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestRead, path, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest bytes. See ReadManifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{Encoding: EncodingUTF8}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: not valid UTF-8 or Latin-1: %w", ErrManifestRead, err)
		}
		data = decoded
		m.Encoding = EncodingLatin1
	}

	m.Delimiter = sniffDelimiter(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = m.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: manifest is empty", ErrManifestRead)
		}
		return nil, fmt.Errorf("%w: %w", ErrManifestRead, err)
	}
	m.Header = header

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrManifestRead, err)
		}
		row := make([]string, len(header))
		copy(row, record)
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// Index returns the position of column, or -1.
func (m *Manifest) Index(column string) int {
	for i, h := range m.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// sniffDelimiter returns a comma whenever the first non-blank line contains
// one. Otherwise it picks the candidate that occurs most often in that line,
// so comma-separated manifests with ';' or '|' inside header names still
// parse as CSV.
func sniffDelimiter(data []byte) rune {
	line := data
	for len(line) > 0 {
		end := bytes.IndexByte(line, '\n')
		var current []byte
		if end < 0 {
			current, line = line, nil
		} else {
			current, line = line[:end], line[end+1:]
		}
		if len(bytes.TrimSpace(current)) == 0 {
			continue
		}
		if bytes.IndexByte(current, ',') >= 0 {
			return ','
		}
		best, bestCount := delimiters[0], 0
		for _, d := range delimiters {
			if n := bytes.Count(current, []byte(string(d))); n > bestCount {
				best, bestCount = d, n
			}
		}
		return best
	}
	return delimiters[0]
}
