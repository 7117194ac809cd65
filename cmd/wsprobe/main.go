// Command wsprobe opens many realtime connections against a running server,
// drives like toggles on one post and reports how many events each viewer saw.
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
	"sort"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the probe results.
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	TogglesSent          int64
	EventsReceived       int64
	Errors               int64

	mu     sync.Mutex
	byType map[string]int64
}

func (m *Metrics) observe(eventType string) {
	atomic.AddInt64(&m.EventsReceived, 1)
	m.mu.Lock()
	m.byType[eventType]++
	m.mu.Unlock()
}

var metrics = Metrics{byType: map[string]int64{}}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	identifier := flag.String("identifier", "sarah@gmail.com", "Login email, phone or username")
	password := flag.String("password", "sarah123", "Login password")
	clients := flag.Int("clients", 50, "Number of concurrent viewers")
	anonymous := flag.Bool("anonymous", false, "Connect viewers without tickets")
	postID := flag.Uint("post", 1, "Post whose like is toggled")
	interval := flag.Duration("interval", 2*time.Second, "Delay between like toggles")
	duration := flag.Duration("duration", 30*time.Second, "Probe duration")
	flag.Parse()

	log.Printf("🚀 Starting realtime probe")
	log.Printf("Target: %s", *host)
	log.Printf("Viewers: %d (anonymous=%v)", *clients, *anonymous)
	log.Printf("Duration: %v", *duration)

	token, err := login(*host, *identifier, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in successfully")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		ticket := ""
		if !*anonymous {
			ticket, err = getTicket(*host, token)
			if err != nil {
				atomic.AddInt64(&metrics.ConnectionsFailed, 1)
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
		}
		wg.Add(1)
		go runViewer(*host, ticket, stopChan, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	wg.Add(1)
	go driveLikes(*host, token, *postID, *interval, stopChan, &wg)

	select {
	case <-time.After(*duration):
		log.Println("⏱️  Probe duration reached")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
	}

	close(stopChan)
	log.Println("Waiting for viewers to disconnect...")
	wg.Wait()

	printMetrics()
}

func postJSON(u, token string, payload any) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(http.MethodPost, u, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return httpClient.Do(req)
}

func login(host, identifier, password string) (string, error) {
	resp, err := postJSON(fmt.Sprintf("http://%s/api/auth/login", host), "", map[string]string{
		"identifier": identifier,
		"password":   password,
	})
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

func getTicket(host, token string) (string, error) {
	resp, err := postJSON(fmt.Sprintf("http://%s/api/ws/ticket", host), token, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket issuance failed with status %d", resp.StatusCode)
	}
	var result struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Ticket, nil
}

func runViewer(host, ticket string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws"}
	if ticket != "" {
		u.RawQuery = url.Values{"ticket": {ticket}}.Encode()
	}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	defer func() { _ = c.Close() }()
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	go func() {
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				return
			}
			var ev struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(raw, &ev) != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			metrics.observe(ev.Type)
		}
	}()

	<-stopChan
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func driveLikes(host, token string, postID uint, interval time.Duration, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	likeURL := fmt.Sprintf("http://%s/api/posts/%d/like", host, postID)
	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			resp, err := postJSON(likeURL, token, nil)
			if err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				atomic.AddInt64(&metrics.Errors, 1)
				continue
			}
			atomic.AddInt64(&metrics.TogglesSent, 1)
		}
	}
}

func printMetrics() {
	log.Println("\n📊 Probe Results")
	log.Println("================")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Like Toggles Sent: %d", atomic.LoadInt64(&metrics.TogglesSent))
	log.Printf("Events Received: %d", atomic.LoadInt64(&metrics.EventsReceived))

	metrics.mu.Lock()
	types := make([]string, 0, len(metrics.byType))
	for t := range metrics.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		log.Printf("  %s: %d", t, metrics.byType[t])
	}
	metrics.mu.Unlock()

	if ok := atomic.LoadInt64(&metrics.ConnectionsSuccess); ok > 0 {
		log.Printf("Events per viewer per toggle: %.2f",
			float64(atomic.LoadInt64(&metrics.EventsReceived))/float64(ok)/float64(max(atomic.LoadInt64(&metrics.TogglesSent), 1)))
	}
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
