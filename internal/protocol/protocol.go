// Package protocol implements the newline-delimited JSON command protocol
// spoken over stdin and stdout.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultMaxLineBytes bounds one input record.
const DefaultMaxLineBytes = 4 << 20

var (
	ErrMissingID      = errors.New("missing id")
	ErrMissingCommand = errors.New("missing command")
	ErrLineTooLong    = errors.New("line exceeds maximum length")
)

// Command is one decoded request line.
type Command struct {
	ID   int64           `json:"id"`
	Name string          `json:"command"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is one encoded reply line. All four keys are always present.
type Response struct {
	ID      int64   `json:"id"`
	Success bool    `json:"success"`
	Result  any     `json:"result"`
	Error   *string `json:"error"`
}

// OK builds a success response.
func OK(id int64, result any) Response {
	return Response{ID: id, Success: true, Result: result}
}

// Fail builds a failure response carrying err's message.
func Fail(id int64, err error) Response {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Response{ID: id, Error: &msg}
}

// DecodeError reports an input record that could not be turned into a Command.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type wireCommand struct {
	ID   *int64          `json:"id"`
	Name *string         `json:"command"`
	Args json.RawMessage `json:"args"`
}

// DecodeCommand parses one trimmed, non-empty record.
func DecodeCommand(line []byte) (Command, error) {
	var wire wireCommand
	if err := json.Unmarshal(line, &wire); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if wire.ID == nil {
		return Command{}, ErrMissingID
	}
	if wire.Name == nil || *wire.Name == "" {
		return Command{}, ErrMissingCommand
	}

	args := wire.Args
	if bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		args = nil
	}
	return Command{ID: *wire.ID, Name: *wire.Name, Args: args}, nil
}
