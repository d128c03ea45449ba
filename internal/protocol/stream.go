package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Reader yields Commands from a line-oriented stream.
type Reader struct {
	r    *bufio.Reader
	max  int
	line int
}

// NewReader wraps r. maxLine <= 0 selects DefaultMaxLineBytes.
func NewReader(r io.Reader, maxLine int) *Reader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &Reader{r: bufio.NewReader(r), max: maxLine}
}

// Next returns the next Command. Blank lines are skipped. A malformed record
// yields a *DecodeError and the reader stays usable; io.EOF ends the stream.
func (r *Reader) Next() (Command, error) {
	for {
		raw, err := r.readLine()
		if err != nil {
			return Command{}, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			continue
		}

		cmd, err := DecodeCommand(trimmed)
		if err != nil {
			return Command{}, &DecodeError{Line: r.line, Err: err}
		}
		return cmd, nil
	}
}

func (r *Reader) readLine() ([]byte, error) {
	var (
		buf     []byte
		tooLong bool
		read    bool
	)

	for {
		chunk, err := r.r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong {
			if len(buf)+len(bytes.TrimRight(chunk, "\r\n")) > r.max {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			return r.finishLine(buf, tooLong)
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if !read {
				return nil, io.EOF
			}
			return r.finishLine(buf, tooLong)
		default:
			return nil, fmt.Errorf("read command: %w", err)
		}
	}
}

func (r *Reader) finishLine(buf []byte, tooLong bool) ([]byte, error) {
	r.line++
	if tooLong {
		return nil, &DecodeError{Line: r.line, Err: ErrLineTooLong}
	}
	return buf, nil
}

// Writer emits one JSON object per line and flushes after each.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes resp. A result that cannot be encoded is replaced by a failure
// response for the same id.
func (w *Writer) Write(resp Response) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	enc := json.NewEncoder(w.w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		var unsupported *json.UnsupportedTypeError
		var unsupportedValue *json.UnsupportedValueError
		var marshaler *json.MarshalerError
		if !errors.As(err, &unsupported) && !errors.As(err, &unsupportedValue) && !errors.As(err, &marshaler) {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := enc.Encode(Fail(resp.ID, fmt.Errorf("encode result: %w", err))); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush response: %w", err)
	}
	return nil
}
