package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

var (
	errOpenQuote  = errors.New("unterminated quote")
	errOpenEscape = errors.New("unterminated escape sequence")
)

// commandLexer splits a hook command string into argv words using
// POSIX-ish quoting: single and double quotes group, backslash escapes the
// next rune, and a leading '#' comments the whole command out.
type commandLexer struct {
	words   []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (l *commandLexer) feed(r rune) {
	switch {
	case l.escaped:
		l.add(r)
		l.escaped = false
	case r == '\\':
		l.escaped = true
		l.inWord = true
	case l.quote != 0 && r == l.quote:
		l.quote = 0
	case l.quote != 0:
		l.add(r)
	case r == '"' || r == '\'':
		l.quote = r
		l.inWord = true
	case unicode.IsSpace(r):
		l.end()
	default:
		l.add(r)
	}
}

func (l *commandLexer) add(r rune) {
	l.word.WriteRune(r)
	l.inWord = true
}

func (l *commandLexer) end() {
	if !l.inWord || l.word.Len() == 0 {
		l.inWord = false
		return
	}
	l.words = append(l.words, l.word.String())
	l.word.Reset()
	l.inWord = false
}

func (l *commandLexer) finish() ([]string, error) {
	switch {
	case l.escaped:
		return nil, errOpenEscape
	case l.quote != 0:
		return nil, errOpenQuote
	}
	l.end()
	return l.words, nil
}

// splitCommand parses a configured command. The program word may start with
// "~/", which expands to the user's home directory.
func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	lexer := &commandLexer{}
	for _, r := range input {
		lexer.feed(r)
	}
	argv, err := lexer.finish()
	if err != nil {
		return nil, fmt.Errorf("%w in command: %q", err, input)
	}

	if len(argv) > 0 && strings.HasPrefix(argv[0], "~/") {
		if home, homeErr := os.UserHomeDir(); homeErr == nil {
			argv[0] = filepath.Join(home, argv[0][2:])
		}
	}
	return argv, nil
}

func mustSplitCommand(input string) []string {
	argv, err := splitCommand(input)
	if err != nil {
		panic(err)
	}
	return argv
}
