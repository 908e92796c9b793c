package reader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// FallbackEncoding is reported when every configured encoding failed and the
// bytes were force-decoded with replacement characters. The default order
// never reaches it.
const FallbackEncoding = "utf-8 (lossy)"

// Encoding is a named text decoder. NewDecoder must return a fresh
// transformer. A decoder either fails on input it cannot decode or drops it.
type Encoding struct {
	Name       string
	NewDecoder func() transform.Transformer
}

// DefaultEncodings returns the decode order: UTF-8 with undecodable bytes
// dropped, then two 8-bit legacy code pages. The first entry never fails, so
// the code pages only come into play behind a custom first entry.
func DefaultEncodings() []Encoding {
	return []Encoding{
		IgnoringUTF8(),
		{
			Name:       "iso-8859-1",
			NewDecoder: func() transform.Transformer { return charmap.ISO8859_1.NewDecoder() },
		},
		{
			Name:       "windows-1252",
			NewDecoder: func() transform.Transformer { return charmap.Windows1252.NewDecoder() },
		},
	}
}

// IgnoringUTF8 decodes UTF-8 and deletes every invalid byte sequence. Stray
// binary bytes inside a sentence vanish instead of dropping the line.
func IgnoringUTF8() Encoding {
	return Encoding{
		Name: "utf-8",
		NewDecoder: func() transform.Transformer {
			// The decoder maps each invalid sequence to U+FFFD; remove those.
			return transform.Chain(
				xunicode.UTF8.NewDecoder(),
				runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError })),
			)
		},
	}
}

// StrictUTF8 fails on any invalid byte sequence.
func StrictUTF8() Encoding {
	return Encoding{
		Name:       "utf-8",
		NewDecoder: func() transform.Transformer { return encoding.UTF8Validator },
	}
}

// Reader decodes log files and filters them down to candidate sentences.
type Reader struct {
	prefix    string
	minLength int
	encodings []Encoding
}

// Option configures a Reader.
type Option func(*Reader)

// WithPrefix sets the sentence tag candidate lines must start with.
func WithPrefix(prefix string) Option {
	return func(r *Reader) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithEncodings replaces the decode order.
func WithEncodings(encs []Encoding) Option {
	return func(r *Reader) {
		r.encodings = encs
	}
}

// WithMinLength sets the length a candidate line must exceed.
func WithMinLength(n int) Option {
	return func(r *Reader) {
		if n >= 0 {
			r.minLength = n
		}
	}
}

// New creates a Reader for sentence.DefaultPrefix unless overridden.
func New(opts ...Option) *Reader {
	r := &Reader{
		prefix:    sentence.DefaultPrefix,
		minLength: MinLineLength,
		encodings: DefaultEncodings(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadCandidateLines returns the candidate lines of path in file order.
func (r *Reader) ReadCandidateLines(path string) ([]string, error) {
	res, err := r.Read(path)
	if err != nil {
		return nil, err
	}
	return res.Lines, nil
}

// Read loads path in full and returns its candidate lines with statistics.
// A missing file yields an error wrapping ErrNotFound; any other I/O failure
// yields a *ReadError.
func (r *Reader) Read(path string) (*Result, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, &ReadError{Path: path, Err: err}
	}

	text, enc := r.Decode(data)
	res := r.Filter(text)
	res.Path = path
	res.Encoding = enc
	return res, nil
}

// Decode converts data to text using the first encoding that succeeds. It
// never fails: when all encodings reject the input, invalid sequences are
// replaced.
func (r *Reader) Decode(data []byte) (text string, encodingName string) {
	for _, enc := range r.encodings {
		out, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err == nil {
			return string(out), enc.Name
		}
	}

	out, _, err := transform.Bytes(xunicode.UTF8.NewDecoder(), data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD"), FallbackEncoding
	}
	return string(out), FallbackEncoding
}

// Filter splits text into lines and keeps those that start with the prefix,
// exceed the minimum length and are clean 7-bit ASCII.
func (r *Reader) Filter(text string) *Result {
	res := &Result{Dropped: make(map[DropReason]int)}

	for _, raw := range splitLines(text) {
		res.TotalLines++
		line := strings.TrimSpace(raw)

		switch {
		case !strings.HasPrefix(line, r.prefix):
			res.Dropped[DropPrefix]++
		case len(line) <= r.minLength:
			res.Dropped[DropShort]++
		case !isCleanASCII(line):
			res.Dropped[DropNonASCII]++
		default:
			res.Lines = append(res.Lines, line)
		}
	}

	return res
}

// lineBreaks folds CRLF and lone CR into LF.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// splitLines splits on \n, \r\n and \r. A trailing break does not start an
// extra line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(lineBreaks.Replace(text), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// isCleanASCII reports whether every rune is 7-bit and printable or whitespace.
func isCleanASCII(s string) bool {
	for _, c := range s {
		if c > unicode.MaxASCII {
			return false
		}
		if !unicode.IsPrint(c) && !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}
