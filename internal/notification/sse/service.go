// Package sse provides Server-Sent Events support for real-time dashboard updates.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"leadbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventSessionStatus    EventType = "session_status"
	EventLeadCaptured     EventType = "lead_captured"
	EventPartialLeadSaved EventType = "partial_lead_saved"
	EventNotification     EventType = "in_app_notification"
)

const clientBuffer = 32

// Event represents an SSE event payload
type Event struct {
	Type     EventType   `json:"type"`
	TenantID uuid.UUID   `json:"tenantId,omitempty"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	userID   uuid.UUID
	tenantID uuid.UUID
	events   chan Event
	closed   bool
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // userID -> clients
	tenants map[uuid.UUID][]*client // tenantID -> clients
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		tenants: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = append(s.clients[c.userID], c)
	if c.tenantID != uuid.Nil {
		s.tenants[c.tenantID] = append(s.tenants[c.tenantID], c)
	}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[c.userID] = without(s.clients[c.userID], c)
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
	if c.tenantID != uuid.Nil {
		s.tenants[c.tenantID] = without(s.tenants[c.tenantID], c)
		if len(s.tenants[c.tenantID]) == 0 {
			delete(s.tenants, c.tenantID)
		}
	}

	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

func without(list []*client, c *client) []*client {
	for i, cl := range list {
		if cl == c {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// deliver sends without blocking. Caller holds s.mu for reading.
func (s *Service) deliver(clients []*client, event Event) int {
	sent := 0
	for _, c := range clients {
		if c.closed {
			continue
		}
		select {
		case c.events <- event:
			sent++
		default:
			s.log.Warn("sse event buffer full", "userId", c.userID, "type", event.Type)
		}
	}
	return sent
}

// Publish sends an event to every connection of a user.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.deliver(s.clients[userID], event)
	s.log.Debug("sse event published", "type", event.Type, "userId", userID, "clients", n)
}

// PublishToTenant broadcasts an event to every dashboard connected for a tenant.
func (s *Service) PublishToTenant(tenantID uuid.UUID, event Event) {
	if event.TenantID == uuid.Nil {
		event.TenantID = tenantID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.deliver(s.tenants[tenantID], event)
	s.log.Debug("sse event published", "type", event.Type, "tenantId", tenantID, "clients", n)
}

// Subscribe registers a connection and returns its event channel and a
// function that unregisters it. The channel is closed on unsubscribe or Close.
func (s *Service) Subscribe(userID, tenantID uuid.UUID) (<-chan Event, func()) {
	cl := &client{
		userID:   userID,
		tenantID: tenantID,
		events:   make(chan Event, clientBuffer),
	}
	s.addClient(cl)
	return cl.events, func() { s.removeClient(cl) }
}

// Subscribers is the number of live connections for a tenant.
func (s *Service) Subscribers(tenantID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants[tenantID])
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), getTenantID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		tenantID, ok := getTenantID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "no tenant bound to token"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		stream, unsubscribe := s.Subscribe(userID, tenantID)
		defer unsubscribe()

		c.SSEvent("connected", gin.H{"userId": userID, "tenantId": tenantID})
		c.Writer.Flush()

		s.log.Debug("sse client connected", "userId", userID, "tenantId", tenantID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "userId", userID)
				return
			case event, ok := <-stream:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			if !c.closed {
				c.closed = true
				close(c.events)
			}
		}
	}
	s.clients = make(map[uuid.UUID][]*client)
	s.tenants = make(map[uuid.UUID][]*client)
}
