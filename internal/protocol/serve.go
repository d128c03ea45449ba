package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Handler processes one command and returns its response.
type Handler interface {
	Handle(context.Context, Command) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Command) Response

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) Response {
	return f(ctx, cmd)
}

type next struct {
	cmd Command
	err error
}

// Serve runs the command loop: one command is fully handled and answered
// before the next is dispatched. It returns nil on end of input or context
// cancellation; a malformed record is logged and skipped without a response.
func Serve(ctx context.Context, r *Reader, w *Writer, handler Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// Reads happen on their own goroutine so cancellation does not wait on a
	// blocked stdin. The channel is unbuffered: at most one line is read ahead.
	lines := make(chan next)
	go func() {
		defer close(lines)
		for {
			cmd, err := r.Next()
			var decodeErr *DecodeError
			select {
			case lines <- next{cmd: cmd, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.As(err, &decodeErr) {
				return
			}
		}
	}()

	for {
		var item next
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case item, ok = <-lines:
			if !ok {
				return nil
			}
		}

		if item.err != nil {
			var decodeErr *DecodeError
			switch {
			case errors.As(item.err, &decodeErr):
				logger.Warn("skipping malformed command", "line", decodeErr.Line, "error", decodeErr.Err.Error())
				continue
			case errors.Is(item.err, io.EOF):
				return nil
			default:
				return item.err
			}
		}

		resp := handler.Handle(ctx, item.cmd)
		resp.ID = item.cmd.ID
		if err := w.Write(resp); err != nil {
			return fmt.Errorf("command %d: %w", item.cmd.ID, err)
		}
	}
}
