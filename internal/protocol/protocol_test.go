package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func echoHandler() Handler {
	return HandlerFunc(func(_ context.Context, cmd Command) Response {
		switch cmd.Name {
		case "ping":
			return OK(cmd.ID, map[string]bool{"pong": true})
		default:
			return Fail(cmd.ID, errors.New("unknown command: "+cmd.Name))
		}
	})
}

func serveString(t *testing.T, input string, handler Handler) []string {
	t.Helper()

	var out bytes.Buffer
	err := Serve(context.Background(), NewReader(strings.NewReader(input), 0), NewWriter(&out), handler, nil)
	require.NoError(t, err)

	if out.Len() == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
}

func TestServePingExactBytes(t *testing.T) {
	lines := serveString(t, `{"id":1,"command":"ping"}`+"\n", echoHandler())
	require.Equal(t, []string{`{"id":1,"success":true,"result":{"pong":true},"error":null}`}, lines)
}

func TestServeFailureSerializesNullResult(t *testing.T) {
	lines := serveString(t, `{"id":2,"command":"nope"}`+"\n", echoHandler())
	require.Equal(t, []string{`{"id":2,"success":false,"result":null,"error":"unknown command: nope"}`}, lines)
}

func TestServeSkipsMalformedAndBlankLines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":1,"command":"ping"}`,
		`not json at all`,
		``,
		`   `,
		`{"id":2}`,
		`{"command":"ping"}`,
		`{"id":"three","command":"ping"}`,
		`{"id":3,"command":"ping","args":{}}`,
		`{"id":4,"command":"ping"} trailing`,
		`{"id":5,"command":"ping"}`,
	}, "\n") + "\n"

	lines := serveString(t, input, echoHandler())
	require.Len(t, lines, 3)

	var ids []int64
	for _, line := range lines {
		var resp struct {
			ID      int64 `json:"id"`
			Success bool  `json:"success"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		require.True(t, resp.Success)
		ids = append(ids, resp.ID)
	}
	require.Equal(t, []int64{1, 3, 5}, ids)
}

func TestServeHandlesFinalLineWithoutNewline(t *testing.T) {
	lines := serveString(t, `{"id":9,"command":"ping"}`, echoHandler())
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], `"id":9`)
}

func TestServeOneResponsePerCommandInOrder(t *testing.T) {
	var input strings.Builder
	for i := 1; i <= 50; i++ {
		cmd, err := json.Marshal(map[string]any{"id": i, "command": "ping"})
		require.NoError(t, err)
		input.Write(cmd)
		input.WriteByte('\n')
	}

	lines := serveString(t, input.String(), echoHandler())
	require.Len(t, lines, 50)
	for i, line := range lines {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		require.Equal(t, int64(i+1), resp.ID)
	}
}

func TestServeOverridesHandlerID(t *testing.T) {
	handler := HandlerFunc(func(context.Context, Command) Response {
		return OK(0, nil)
	})
	lines := serveString(t, `{"id":42,"command":"x"}`+"\n", handler)
	require.Equal(t, []string{`{"id":42,"success":true,"result":null,"error":null}`}, lines)
}

func TestServeStopsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, NewReader(pr, 0), NewWriter(io.Discard), echoHandler(), nil)
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestWriterFlushesEachResponse(t *testing.T) {
	pr, pw := io.Pipe()
	w := NewWriter(pw)

	go func() {
		_ = w.Write(OK(1, map[string]bool{"pong": true}))
	}()

	line, err := bufio.NewReader(pr).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, `{"id":1,"success":true,"result":{"pong":true},"error":null}`+"\n", line)
}

func TestWriterReplacesUnencodableResult(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewWriter(&out).Write(OK(3, map[string]any{"bad": make(chan int)})))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, int64(3), resp.ID)
	require.NotNil(t, resp.Error)
	require.Contains(t, *resp.Error, "encode result")
}

func TestWriterDoesNotEscapeHTML(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewWriter(&out).Write(OK(1, map[string]string{"content": "<b>&</b>"})))
	require.Contains(t, out.String(), `"<b>&</b>"`)
}

func TestReaderRejectsOverlongLineAndRecovers(t *testing.T) {
	long := `{"id":1,"command":"` + strings.Repeat("x", 200) + `"}`
	input := long + "\n" + `{"id":2,"command":"ping"}` + "\n"

	r := NewReader(strings.NewReader(input), 64)

	_, err := r.Next()
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.ErrorIs(t, err, ErrLineTooLong)
	require.Equal(t, 1, decodeErr.Line)

	cmd, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, int64(2), cmd.ID)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"id":7,"command":"get_guild_channels","args":{"guild_id":"123"}}`))
	require.NoError(t, err)
	require.Equal(t, int64(7), cmd.ID)
	require.Equal(t, "get_guild_channels", cmd.Name)
	require.JSONEq(t, `{"guild_id":"123"}`, string(cmd.Args))

	cmd, err = DecodeCommand([]byte(`{"id":8,"command":"ping","args":null}`))
	require.NoError(t, err)
	require.Nil(t, cmd.Args)

	_, err = DecodeCommand([]byte(`{"id":8,"command":""}`))
	require.ErrorIs(t, err, ErrMissingCommand)

	_, err = DecodeCommand([]byte(`{"command":"ping"}`))
	require.ErrorIs(t, err, ErrMissingID)

	_, err = DecodeCommand([]byte(`{"id":1.5,"command":"ping"}`))
	require.Error(t, err)
}
