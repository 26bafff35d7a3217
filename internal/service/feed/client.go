package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"FreshSnap/internal/domain/models"
	drepo "FreshSnap/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the provider WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	pids           []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new feed MarketStream.
func New(apiKey, websocketURL string, pids []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		pids:           pids,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("feed: connected")
	return nil
}

// Subscribe subscribes to the configured instrument universe.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, pid := range c.pids {
		msg := map[string]string{"type": "subscribe", "pid": pid}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", pid, err)
		}
		log.Printf("feed: subscribed %s", pid)
	}
	return nil
}

type wireQuote struct {
	PID       string  `json:"pid"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	LastClose float64 `json:"last_close"`
	ChangePct float64 `json:"pcp"`
	Volume    float64 `json:"volume"`
	T         int64   `json:"t"` // ms
}

type wireMessage struct {
	Type string      `json:"type"`
	Data []wireQuote `json:"data"`
}

// Read streams price points and errors. The channels die with the
// underlying socket: after a read failure both are closed and the caller
// must Reconnect and call Read again for fresh ones.
func (c *Client) Read(ctx context.Context) (<-chan *models.PricePoint, <-chan error) {
	points := make(chan *models.PricePoint, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	// ping loop, bound to this read session
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(points)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("feed read: %w", err)
					return
				}
				var m wireMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-quote frames
					continue
				}
				if m.Type != "quote" {
					continue
				}
				for _, d := range m.Data {
					p := &models.PricePoint{
						PID:       d.PID,
						Timestamp: d.T / 1000,
						Last:      d.Last,
						Bid:       d.Bid,
						Ask:       d.Ask,
						High:      d.High,
						Low:       d.Low,
						LastClose: d.LastClose,
						ChangePct: d.ChangePct,
						Volume:    d.Volume,
					}
					select {
					case points <- p:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return points, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
