package markov

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// DefaultTokenizer is a default implementation of the Tokenizer interface.
// It uses regular expressions to split text into words and punctuation, and
// joins punctuation to the preceding token without a separator.
// Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	separator         string
	lowercase         bool
	splitRegex        *regexp.Regexp
	separatorExcRegex *regexp.Regexp
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithSeparator Sets the string used for joining tokens.
// Default: " "
func WithSeparator(sep string) Option {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithSplitRegex sets the regex string used to find tokens in input text.
// Default: `[\p{L}\p{N}_'-]+|[.,!?;:]`
func WithSplitRegex(splitRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.splitRegex = regexp.MustCompile(splitRegex)
	}
}

// WithSeparatorExcRegex sets the regex string used to decide whether a token
// is joined without a separator before it.
// Default: `^[.,!?;:]`
func WithSeparatorExcRegex(sepExcRegex string) Option {
	return func(t *DefaultTokenizer) {
		t.separatorExcRegex = regexp.MustCompile(sepExcRegex)
	}
}

// WithLowercase folds every token to lower case.
func WithLowercase(lower bool) Option {
	return func(t *DefaultTokenizer) {
		t.lowercase = lower
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// Runs of letters, digits, apostrophes and hyphens, OR single
		// punctuation marks. Unicode classes keep accented words whole.
		splitRegex:        regexp.MustCompile(`[\p{L}\p{N}_'-]+|[.,!?;:]`),
		separatorExcRegex: regexp.MustCompile(`^[.,!?;:]`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Join concatenates tokens, inserting the separator before every token that
// is not excluded by the separator exception regex.
func (t *DefaultTokenizer) Join(tokens []string) string {
	var builder strings.Builder
	for i, token := range tokens {
		if i > 0 && !t.separatorExcRegex.MatchString(token) {
			builder.WriteString(t.separator)
		}
		builder.WriteString(token)
	}
	return builder.String()
}

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &DefaultStreamTokenizer{
		scanner:    scanner,
		splitRegex: t.splitRegex,
		lowercase:  t.lowercase,
	}
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It uses a bufio.Scanner and a regular expression to read and tokenize a stream.
type DefaultStreamTokenizer struct {
	scanner    *bufio.Scanner
	buffer     []string
	splitRegex *regexp.Regexp
	lowercase  bool
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns an empty string and io.EOF. Any other error indicates a problem
// reading from the underlying stream.
func (s *DefaultStreamTokenizer) Next() (string, error) {
	for len(s.buffer) == 0 { // Loop until we have tokens
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		s.buffer = s.splitRegex.FindAllString(s.scanner.Text(), -1)
	}

	word := s.buffer[0]
	s.buffer = s.buffer[1:]

	if s.lowercase {
		word = strings.ToLower(word)
	}
	return word, nil
}
