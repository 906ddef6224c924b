// Package hub tracks which users currently hold a live websocket
// connection and provides the push path to them.
package hub

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps user IDs to their single live client. Registration is
// last-writer-wins: registering a user who already has a client evicts
// the old one.
type Registry struct {
	mu      sync.RWMutex
	clients map[int64]*Client
	logger  *logrus.Logger
}

// NewRegistry creates an empty connection registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		clients: make(map[int64]*Client),
		logger:  logger,
	}
}

// Register binds client to its user ID and returns the client it
// replaced, if any. The caller is responsible for closing the replaced
// client.
func (r *Registry) Register(client *Client) *Client {
	r.mu.Lock()
	previous := r.clients[client.UserID]
	r.clients[client.UserID] = client
	r.mu.Unlock()

	if previous != nil {
		r.logger.WithFields(logrus.Fields{
			"user_id":         client.UserID,
			"resource_id":     client.ResourceID,
			"old_resource_id": previous.ResourceID,
		}).Info("Connection superseded by newer registration")
	}
	return previous
}

// Unregister removes client from the registry only if it is still the
// registered instance for its user. A stale connection unregistering
// after being superseded is a no-op. Returns whether the entry was
// removed.
func (r *Registry) Unregister(client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[client.UserID]
	if !ok || current.ResourceID != client.ResourceID {
		return false
	}
	delete(r.clients, client.UserID)
	return true
}

// Lookup returns the live client for userID, if any.
func (r *Registry) Lookup(userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[userID]
	return client, ok
}

// IsOnline reports whether userID has a live connection.
func (r *Registry) IsOnline(userID int64) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
