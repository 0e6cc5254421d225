package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func decodeJSONC(content string) (fileConfig, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return fileConfig{}, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return fileConfig{}, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return fileConfig{}, wrapJSONDecodeError(normalized, err)
	}
	return payload, nil
}

type jsoncMode int

const (
	modeCode jsoncMode = iota
	modeString
	modeLineComment
	modeBlockComment
)

// normalizeJSONC blanks comments and trailing commas in place so decoder
// offsets still point at the original line and column.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	mode := modeCode
	escaped := false
	pendingComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch mode {
		case modeString:
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				mode = modeCode
			}

		case modeLineComment:
			if ch == '\n' || ch == '\r' {
				mode = modeCode
				continue
			}
			out[i] = ' '

		case modeBlockComment:
			if ch == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				mode = modeCode
				continue
			}
			if !isJSONWhitespace(ch) {
				out[i] = ' '
			}

		default:
			if ch == '/' && i+1 < len(out) && (out[i+1] == '/' || out[i+1] == '*') {
				mode = modeLineComment
				if out[i+1] == '*' {
					mode = modeBlockComment
				}
				out[i], out[i+1] = ' ', ' '
				i++
				continue
			}
			if isJSONWhitespace(ch) {
				continue
			}
			if (ch == '}' || ch == ']') && pendingComma >= 0 {
				out[pendingComma] = ' '
			}
			pendingComma = -1
			switch ch {
			case ',':
				pendingComma = i
			case '"':
				mode = modeString
			}
		}
	}

	if mode == modeBlockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return string(out), nil
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	limit := min(int(offset), len(content))
	if limit < 1 {
		return 1, 1
	}
	prefix := content[:limit-1]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}
