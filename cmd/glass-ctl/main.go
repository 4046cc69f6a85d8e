package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
)

// ============================================================================
// glass-ctl - Command-line IPC Client
// ============================================================================
// Sends one command to the glassd daemon over its IPC socket.
//
// Usage:
//   glass-ctl tap
//   glass-ctl double-tap
//   glass-ctl long-press
//   glass-ctl display [on|off]
//   glass-ctl mute [on|off]
//   glass-ctl power [normal|eco|ultra_low]
//   glass-ctl text "Hello"
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/glassd.sock)
// ============================================================================

// request is one action in the daemon's {type, data} wire envelope.
type request struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const defaultSocket = "/tmp/glassd.sock"

func main() {
	socketPath := defaultSocket

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-socket" || args[0] == "--socket") {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage()
		return
	}

	req, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if err := send(socketPath, req); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

// parseCommand maps command-line words onto a daemon action.
func parseCommand(args []string) (request, error) {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "tap", "single-tap":
		return request{Type: "inject_gesture", Data: map[string]string{"gesture": "single_tap"}}, nil
	case "double-tap":
		return request{Type: "inject_gesture", Data: map[string]string{"gesture": "double_tap"}}, nil
	case "long-press", "hold":
		return request{Type: "inject_gesture", Data: map[string]string{"gesture": "long_press"}}, nil

	case "display":
		if len(rest) == 0 {
			return request{Type: "toggle_display"}, nil
		}
		on, err := parseOnOff(rest[0])
		if err != nil {
			return request{}, err
		}
		return request{Type: "set_display", Data: map[string]bool{"on": on}}, nil

	case "mute":
		if len(rest) == 0 {
			return request{Type: "toggle_mute"}, nil
		}
		muted, err := parseOnOff(rest[0])
		if err != nil {
			return request{}, err
		}
		return request{Type: "set_mute", Data: map[string]bool{"muted": muted}}, nil

	case "power":
		if len(rest) == 0 {
			return request{Type: "cycle_power_mode"}, nil
		}
		// The daemon validates the mode name.
		return request{Type: "set_power_mode", Data: map[string]string{"mode": rest[0]}}, nil

	case "text":
		if len(rest) == 0 {
			return request{}, fmt.Errorf("text requires a message")
		}
		return request{Type: "show_text", Data: map[string]string{"text": strings.Join(rest, " ")}}, nil

	default:
		return request{}, fmt.Errorf("unknown command: %s", cmd)
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

func send(socketPath string, req request) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send action: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `glass-ctl - Control the glassd daemon via IPC

Usage:
  glass-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/glassd.sock)

Commands:
  tap, single-tap         Inject a single tap (toggles the display)
  double-tap              Inject a double tap (toggles mute)
  long-press, hold        Inject a long press (cycles the power mode)
  display [on|off]        Toggle or set the display power
  mute [on|off]           Toggle or set the audio mute
  power [mode]            Cycle or set the power mode (normal, eco, ultra_low)
  text <message>          Show a message on the display
  help, -h, --help        Show this help message

Examples:
  glass-ctl double-tap
  glass-ctl power eco
  glass-ctl -socket /run/glassd.sock text "Battery swap in 5 min"
`)
}
