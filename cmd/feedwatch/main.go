// Package main connects to the live poem feed and prints every event it
// receives. Handy for checking that feed fan-out works across instances.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"verses/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	host := flag.String("host", "localhost:8375", "API server host")
	email := flag.String("email", "", "Log in as this user (optional)")
	password := flag.String("password", "password123", "Password for -email")
	duration := flag.Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	flag.Parse()

	header := http.Header{}
	if *email != "" {
		token, err := login(*host, *email, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		header.Set("Authorization", "Bearer "+token)
		log.Printf("Logged in as %s", *email)
	}

	u := url.URL{Scheme: "ws", Host: *host, Path: "/api/ws/feed"}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			log.Fatalf("Dial %s failed with status %d: %v", u.String(), resp.StatusCode, err)
		}
		log.Fatalf("Dial %s failed: %v", u.String(), err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("Watching %s", u.String())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				return
			}
			printEvent(msg)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	select {
	case <-done:
		return
	case <-interrupt:
		log.Println("Interrupted")
	case <-timeout:
		log.Println("Duration reached")
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func printEvent(msg []byte) {
	var ev notifications.FeedEvent
	if err := json.Unmarshal(msg, &ev); err != nil || ev.Type == "" {
		log.Printf("raw: %s", msg)
		return
	}
	line := fmt.Sprintf("%s poem=%d author=%s likes=%d", ev.Type, ev.PoemID, ev.AuthorID, ev.LikeCount)
	if ev.Poem != nil {
		line += fmt.Sprintf(" title=%q", ev.Poem.Title)
	}
	log.Print(line)
}

func login(host, email, password string) (string, error) {
	loginURL := fmt.Sprintf("http://%s/api/auth/login", host)
	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(loginURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}
