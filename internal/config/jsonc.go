package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// normalizeJSONC blanks comments and trailing commas in place so decoder
// offsets still map onto the original text.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	if err := blankComments(buf); err != nil {
		return "", err
	}
	blankTrailingCommas(buf)
	return string(buf), nil
}

func blankComments(buf []byte) error {
	const (
		code = iota
		str
		strEscape
		line
		block
	)

	state := code
	for i := 0; i < len(buf); i++ {
		ch := buf[i]
		switch state {
		case str:
			switch ch {
			case '\\':
				state = strEscape
			case '"':
				state = code
			}
		case strEscape:
			state = str
		case line:
			if ch == '\n' || ch == '\r' {
				state = code
				continue
			}
			buf[i] = ' '
		case block:
			if ch == '*' && i+1 < len(buf) && buf[i+1] == '/' {
				buf[i], buf[i+1] = ' ', ' '
				i++
				state = code
				continue
			}
			if !isJSONWhitespace(ch) {
				buf[i] = ' '
			}
		default:
			switch {
			case ch == '"':
				state = str
			case ch == '/' && i+1 < len(buf) && buf[i+1] == '/':
				buf[i], buf[i+1] = ' ', ' '
				i++
				state = line
			case ch == '/' && i+1 < len(buf) && buf[i+1] == '*':
				buf[i], buf[i+1] = ' ', ' '
				i++
				state = block
			}
		}
	}

	if state == block {
		return fmt.Errorf("unterminated block comment in JSONC")
	}
	return nil
}

func blankTrailingCommas(buf []byte) {
	inString := false
	escape := false

	for i := 0; i < len(buf); i++ {
		ch := buf[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(buf) && isJSONWhitespace(buf[j]) {
				j++
			}
			if j < len(buf) && (buf[j] == '}' || buf[j] == ']') {
				buf[i] = ' '
			}
		}
	}
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	if decoder.More() {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	if _, err := decoder.Token(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol maps a decoder byte offset (one past the offending byte)
// to a 1-based line and column.
func offsetToLineCol(content string, offset int64) (int, int) {
	end := min(int(max(offset, 1)), len(content)+1) - 1

	line, col := 1, 1
	for _, ch := range []byte(content[:end]) {
		if ch == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
