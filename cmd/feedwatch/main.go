// Command main tails the Wendle change stream from a terminal. Useful for
// watching the realtime pipeline during development.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "localhost:8642", "Server address")
	token := flag.String("token", "", "JWT to connect as an authenticated viewer")
	watch := flag.Uint("watch", 0, "Post ID to watch for thread snapshots")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/api/ws/changes"}
	if *token != "" {
		u.RawQuery = "token=" + url.QueryEscape(*token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial %s: %v", u.String(), err)
	}
	defer conn.Close()
	log.Printf("Connected to %s", u.Host)

	if *watch != 0 {
		cmd := fmt.Sprintf(`{"type":"watch_post","post_id":%d}`, *watch)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
			log.Fatalf("Watch request failed: %v", err)
		}
		log.Printf("Watching post %d", *watch)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Read: %v", err)
				return
			}
			printEvent(message)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
	case <-sigChan:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func printEvent(message []byte) {
	var ev struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(message, &ev); err != nil {
		fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), message)
		return
	}

	switch ev.Type {
	case "changed":
		var ch struct {
			Table  string `json:"table"`
			PostID uint   `json:"post_id,omitempty"`
		}
		_ = json.Unmarshal(ev.Payload, &ch)
		if ch.PostID != 0 {
			fmt.Printf("%s  changed  %s (post %d)\n", time.Now().Format(time.TimeOnly), ch.Table, ch.PostID)
		} else {
			fmt.Printf("%s  changed  %s\n", time.Now().Format(time.TimeOnly), ch.Table)
		}
	case "messages_dropped":
		fmt.Printf("%s  dropped events, re-pull recommended\n", time.Now().Format(time.TimeOnly))
	default:
		fmt.Printf("%s  %s\n", time.Now().Format(time.TimeOnly), message)
	}
}
