package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMainHelp(t *testing.T) {
	output, err := runMainSubprocess(t, "", "--help")
	require.NoError(t, err, string(output))
	require.Contains(t, string(output), "Usage:")
}

func TestMainInvalidCommandExitsTwo(t *testing.T) {
	output, err := runMainSubprocess(t, "", "not-a-command")
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	require.Equal(t, 2, exitErr.ExitCode())
	require.Contains(t, string(output), "unknown command")
}

func TestMainServesPingUntilEOF(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"log": {"level": "error"}}`), 0o600))

	cmd := helperCommand(`{"id":42,"command":"ping"}`+"\n", "--config", cfg)
	output, err := cmd.Output()
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(output))), &resp))
	require.Equal(t, map[string]any{"id": float64(42), "success": true, "result": map[string]any{"pong": true}, "error": nil}, resp)
}

func TestMainHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	dashIndex := -1
	for i, arg := range args {
		if arg == "--" {
			dashIndex = i
			break
		}
	}

	os.Args = []string{"socialbridge"}
	if dashIndex >= 0 && dashIndex+1 < len(args) {
		os.Args = append(os.Args, args[dashIndex+1:]...)
	}

	main()
}

func helperCommand(stdin string, args ...string) *exec.Cmd {
	cmdArgs := []string{"-test.run=TestMainHelperProcess", "--"}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	cmd.Stdin = strings.NewReader(stdin)
	return cmd
}

func runMainSubprocess(t *testing.T, stdin string, args ...string) ([]byte, error) {
	t.Helper()
	return helperCommand(stdin, args...).CombinedOutput()
}
