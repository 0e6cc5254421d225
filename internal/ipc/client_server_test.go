package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveFunc(t *testing.T, socketPath string, fn HandlerFunc) (context.CancelFunc, <-chan error) {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, fn)
	}()
	return cancel, serveDone
}

func TestSendRoundTripCarriesShotFields(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	finishedAt := time.Date(2026, 3, 1, 8, 0, 26, 0, time.UTC)

	cancel, serveDone := serveFunc(t, socketPath, func(_ context.Context, req Request) Response {
		return Response{
			OK:        true,
			State:     "finished",
			Message:   req.Command,
			Elapsed:   "26.5",
			ElapsedMS: 26500,
			LastShot: &ShotSummary{
				ID:         "abc",
				DurationMS: 26500,
				Verdict:    "on_target",
				Trigger:    "silence",
				FinishedAt: finishedAt,
			},
		}
	})
	defer cancel()

	resp, err := Send(context.Background(), socketPath, Request{Command: "STATUS "}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "finished", resp.State)
	require.Equal(t, CommandStatus, resp.Message)
	require.Equal(t, "26.5", resp.Elapsed)
	require.Equal(t, int64(26500), resp.ElapsedMS)
	require.NotNil(t, resp.LastShot)
	require.Equal(t, "on_target", resp.LastShot.Verdict)
	require.True(t, finishedAt.Equal(resp.LastShot.FinishedAt))

	cancel()
	require.NoError(t, <-serveDone)
}

func TestServeRejectsUnknownCommand(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	called := false
	cancel, serveDone := serveFunc(t, socketPath, func(context.Context, Request) Response {
		called = true
		return Response{OK: true}
	})
	defer cancel()

	resp, err := Send(context.Background(), socketPath, Request{Command: "brew"}, 200*time.Millisecond)
	require.NoError(t, err)
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, `unknown command "brew"`)

	cancel()
	require.NoError(t, <-serveDone)
	require.False(t, called)
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()

		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	cancel, serveDone := serveFunc(t, socketPath, func(context.Context, Request) Response {
		return Response{OK: true}
	})
	defer cancel()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestCallReportsNoActiveSession(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)

	_, err := Call(context.Background(), socketPath, Request{Command: CommandStop}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestServeRejectsOversizedRequest(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	cancel, serveDone := serveFunc(t, socketPath, func(context.Context, Request) Response {
		return Response{OK: true}
	})
	defer cancel()

	resp, err := Send(context.Background(), socketPath, Request{Command: strings.Repeat("x", maxRequestBytes)}, 500*time.Millisecond)
	require.NoError(t, err)
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "read request")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), socketName)
	cancel, serveDone := serveFunc(t, socketPath, func(_ context.Context, req Request) Response {
		if req.Command == CommandStatus {
			return Response{OK: true, State: "idle"}
		}
		return Response{OK: false, Error: "bad"}
	})
	defer cancel()

	alive, probeErr := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "status", want: CommandStatus},
		{raw: " Toggle ", want: CommandToggle},
		{raw: "RESET", want: CommandReset},
		{raw: "", wantErr: true},
		{raw: "pull", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseCommand(tc.raw)
		if tc.wantErr {
			require.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got)
	}
}
