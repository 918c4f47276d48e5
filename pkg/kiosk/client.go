package kiosk

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"kopimatic/domain"
	"kopimatic/pkg/realtime"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2/log"
)

const (
	resyncMaxAttempts = 3
	resyncBaseDelay   = 500 * time.Millisecond
)

// wireEvent defers payload decoding until the event type is known.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is the kiosk's connection to the realtime endpoint. It joins one
// machine room, keeps the normalized cache current from the event stream and
// re-requests snapshots when the initial sync comes back empty.
//
// Cache mutation happens only on the Run goroutine. Readers use View, which
// takes the same lock the loop writes under.
type Client struct {
	url       string
	machineID string
	dialer    *websocket.Dialer

	mu    sync.RWMutex
	cache *Cache

	conn *websocket.Conn

	// readFrame pulls the next event off the wire; set by Connect.
	readFrame func() (wireEvent, error)

	// Run-goroutine state, untouched by readers.
	awaitingInventory bool
	resyncAttempts    int
}

func NewClient(url, machineID string) *Client {
	return &Client{
		url:       url,
		machineID: machineID,
		dialer:    websocket.DefaultDialer,
		cache:     NewCache(machineID),
	}
}

// Connect dials the endpoint and joins the machine's room. The first
// request-data is sent immediately so the cache fills before the UI renders.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	c.readFrame = func() (wireEvent, error) {
		var ev wireEvent
		err := conn.ReadJSON(&ev)
		return ev, err
	}

	if err := c.send(realtime.MessageJoinMachine); err != nil {
		conn.Close()
		return err
	}
	if err := c.requestData(); err != nil {
		conn.Close()
		return err
	}
	return nil
}

func (c *Client) send(msgType string) error {
	return c.conn.WriteJSON(realtime.ClientMessage{
		Type:      msgType,
		MachineID: c.machineID,
	})
}

func (c *Client) requestData() error {
	c.awaitingInventory = true
	return c.send(realtime.MessageRequestData)
}

// Run pumps the event stream into the cache until the context ends or the
// connection drops. A dropped connection is surfaced to the caller, which
// reconnects with a fresh Connect + Run; there is no partial recovery.
func (c *Client) Run(ctx context.Context) error {
	frames := make(chan wireEvent)
	readErr := make(chan error, 1)
	// Closing done releases a reader blocked on handing over a frame after
	// Run has already returned; without it the goroutine would hold the
	// connection forever.
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(frames)
		for {
			ev, err := c.readFrame()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- ev:
			case <-done:
				return
			}
		}
	}()

	resync := time.NewTimer(resyncBaseDelay)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			c.closeConn()
			return ctx.Err()
		case err := <-readErr:
			c.closeConn()
			return err
		case ev, ok := <-frames:
			if !ok {
				continue
			}
			c.apply(ev)
		case <-resync.C:
			if !c.awaitingInventory {
				continue
			}
			if c.resyncAttempts >= resyncMaxAttempts {
				log.Errorf("kiosk: inventory sync for machine %s gave up after %d attempts", c.machineID, c.resyncAttempts)
				c.awaitingInventory = false
				continue
			}
			c.resyncAttempts++
			log.Warnf("kiosk: empty inventory after join, re-requesting (attempt %d)", c.resyncAttempts)
			if err := c.send(realtime.MessageRequestData); err != nil {
				c.closeConn()
				return err
			}
			resync.Reset(resyncBaseDelay << c.resyncAttempts)
		}
	}
}

func (c *Client) apply(ev wireEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case realtime.EventRecipeUpdate:
		var recipes []domain.RecipeResponse
		if err := json.Unmarshal(ev.Data, &recipes); err != nil {
			log.Errorf("kiosk: decode %s: %v", ev.Type, err)
			return
		}
		c.cache.ApplyRecipes(recipes)
	case realtime.EventMachineStatusUpdate:
		var payload realtime.MachineStatusPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			log.Errorf("kiosk: decode %s: %v", ev.Type, err)
			return
		}
		c.cache.ApplyMachine(payload)
	case realtime.EventMachineTemperature:
		var payload realtime.TemperaturePayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			log.Errorf("kiosk: decode %s: %v", ev.Type, err)
			return
		}
		c.cache.ApplyTemperature(payload)
	case realtime.EventMachineInventory:
		var payload realtime.InventoryPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			log.Errorf("kiosk: decode %s: %v", ev.Type, err)
			return
		}
		full := c.awaitingInventory
		c.cache.ApplyInventory(payload, full)
		if full && c.cache.InventoryCount() > 0 {
			c.awaitingInventory = false
			c.resyncAttempts = 0
		}
	case realtime.EventRecipeAvailability:
		var snapshot domain.AvailabilitySnapshot
		if err := json.Unmarshal(ev.Data, &snapshot); err != nil {
			log.Errorf("kiosk: decode %s: %v", ev.Type, err)
			return
		}
		c.cache.ApplyAvailability(snapshot)
	default:
		log.Warnf("kiosk: unknown event %q", ev.Type)
	}
}

// View runs fn against the cache under the read lock. fn must not retain the
// cache past its return.
func (c *Client) View(fn func(*Cache)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.cache)
}

// IsRecipeAvailable answers the kiosk UI's hot-path question without
// allocating.
func (c *Client) IsRecipeAvailable(recipeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.IsRecipeAvailable(recipeID)
}

// Close tears the connection down; a new session starts from Connect.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}
