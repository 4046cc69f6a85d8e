package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// envelope mirrors the daemon's state websocket frames.
type envelope struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3002/ws/state", "glassd state websocket URL")
		raw   = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Pings and the close frame share the connection.
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			// Server frames also extend the deadline.
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if messageType != websocket.TextMessage {
				fmt.Printf("[BINARY] %d bytes\n", len(message))
				continue
			}
			if *raw {
				fmt.Printf("%s\n", message)
				continue
			}
			fmt.Println(formatMessage(message))
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// formatMessage renders one state frame as a tagged line.
func formatMessage(message []byte) string {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return "[TEXT] " + string(message)
	}
	ts := env.Ts.Local().Format("15:04:05.000")

	switch env.Type {
	case "gesture":
		var d struct {
			Gesture string `json:"gesture"`
			Source  string `json:"source"`
		}
		if json.Unmarshal(env.Data, &d) == nil {
			return fmt.Sprintf("%s [GESTURE] %s (%s)", ts, d.Gesture, d.Source)
		}
	case "display_changed":
		var d struct {
			On bool `json:"on"`
		}
		if json.Unmarshal(env.Data, &d) == nil {
			return fmt.Sprintf("%s [DISPLAY] %s", ts, onOff(d.On, "ON", "OFF"))
		}
	case "mute_changed":
		var d struct {
			Muted bool `json:"muted"`
		}
		if json.Unmarshal(env.Data, &d) == nil {
			return fmt.Sprintf("%s [MUTE] %s", ts, onOff(d.Muted, "MUTED", "UNMUTED"))
		}
	case "power_mode_changed":
		var d struct {
			Mode string `json:"mode"`
		}
		if json.Unmarshal(env.Data, &d) == nil {
			return fmt.Sprintf("%s [POWER] %s", ts, strings.ToUpper(d.Mode))
		}
	case "battery_changed":
		var d struct {
			Percent int   `json:"percent"`
			Levels  []int `json:"levels"`
		}
		if json.Unmarshal(env.Data, &d) == nil {
			return fmt.Sprintf("%s [BATTERY] %d%% %v", ts, d.Percent, d.Levels)
		}
	}

	// state_init and anything unknown: pretty print the payload.
	pretty, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		pretty = env.Data
	}
	return fmt.Sprintf("%s [%s]\n%s", ts, strings.ToUpper(env.Type), pretty)
}

func onOff(b bool, on, off string) string {
	if b {
		return on
	}
	return off
}
