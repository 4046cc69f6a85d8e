package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"glassd/internal/gesture"
)

// startIPC runs the IPC server on a temp socket and waits for it to listen.
func startIPC(t *testing.T, events chan Event) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "glassd.sock")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runIPCServer(ctx, socketPath, events, testLogger()) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("runIPCServer: %v", err)
			}
		case <-time.After(time.Second):
			t.Errorf("IPC server did not stop")
		}
	})

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, "IPC socket not created")
	return socketPath
}

func TestIPC_SendEvent(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startIPC(t, events)

	if err := SendIPCEvent(socketPath, InjectGesture{Gesture: gesture.DoubleTap}); err != nil {
		t.Fatalf("SendIPCEvent: %v", err)
	}
	select {
	case ev := <-events:
		if ev != (InjectGesture{Gesture: gesture.DoubleTap}) {
			t.Fatalf("event = %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestIPC_QueueFull(t *testing.T) {
	events := make(chan Event, 1)
	socketPath := startIPC(t, events)

	if err := SendIPCEvent(socketPath, ToggleMute{}); err != nil {
		t.Fatalf("first SendIPCEvent: %v", err)
	}
	err := SendIPCEvent(socketPath, ToggleMute{})
	if err == nil || !strings.Contains(err.Error(), errQueueFull.Error()) {
		t.Fatalf("err = %v, want queue full", err)
	}
}

func TestIPC_BadRequestKeepsConnection(t *testing.T) {
	events := make(chan Event, 4)
	socketPath := startIPC(t, events)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	r := bufio.NewReader(conn)
	readResp := func() IPCResponse {
		t.Helper()
		line, err := r.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
		var resp IPCResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			t.Fatalf("decode %s: %v", line, err)
		}
		return resp
	}

	if _, err := conn.Write([]byte("not json\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := readResp(); resp.Status != "error" || resp.Error == "" {
		t.Fatalf("resp = %+v, want error", resp)
	}

	if _, err := conn.Write([]byte(`{"type":"cycle_power_mode"}` + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if resp := readResp(); resp.Status != "ok" {
		t.Fatalf("resp = %+v, want ok", resp)
	}
	if ev := <-events; ev != (CyclePowerMode{}) {
		t.Fatalf("event = %#v", ev)
	}
}

func TestSendIPCEvent_NoDaemon(t *testing.T) {
	err := SendIPCEvent(filepath.Join(t.TempDir(), "missing.sock"), ToggleDisplay{})
	if err == nil {
		t.Fatalf("expected connect error")
	}
}
