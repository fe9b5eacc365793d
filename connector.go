package intents

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/omnisdk/intents-go/storage"
)

// DefaultStoragePrefix namespaces persisted identity records.
const DefaultStoragePrefix = "omnisdk"

// State of a connector session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// EventType of a session event.
type EventType string

const (
	EventConnect    EventType = "connect"
	EventDisconnect EventType = "disconnect"
)

// Event is delivered to session subscribers on wallet attach and detach.
// Wallet is nil for disconnect events.
type Event struct {
	Type   EventType
	Wallet *Wallet
}

// RestoreFunc rebuilds a wallet from a persisted identity record with no
// user interaction. Connectors supply the variant-appropriate hook.
type RestoreFunc func(ctx context.Context, identity PersistedIdentity) (*Wallet, error)

// TeardownFunc releases connector-held resources (a live pairing session,
// a bridge transport) before the slot is cleared.
type TeardownFunc func(ctx context.Context) error

// SessionConfig configures a connector session.
type SessionConfig struct {
	// ConnectorID identifies the connector instance; it keys the persisted
	// identity record (required).
	ConnectorID string

	// Store holds the persisted identity (required for persistence;
	// sessions run fine without one, they just never restore).
	Store storage.Store

	// StoragePrefix namespaces the record key (optional, defaults to
	// DefaultStoragePrefix).
	StoragePrefix string

	// Restore rebuilds a wallet from a persisted identity (optional; no
	// silent restoration without it).
	Restore RestoreFunc

	// Teardown runs during Disconnect before the slot is cleared
	// (optional).
	Teardown TeardownFunc
}

// Session tracks one connector's active wallet. The slot holds at most one
// wallet at a time; connecting a new one replaces the previous identity
// rather than accumulating alongside it.
type Session struct {
	connectorID string
	storageKey  string
	store       storage.Store
	restore     RestoreFunc
	teardown    TeardownFunc

	mu          sync.Mutex
	state       State
	wallet      *Wallet
	subscribers map[int]func(Event)
	nextSub     int
}

// NewSession creates a session and attempts silent restoration: a
// schema-valid persisted identity rebuilds the wallet through the restore
// hook and the session starts connected. Any failure along that path (no
// record, invalid record, rebuild error) degrades to a normal disconnected
// start.
func NewSession(config SessionConfig) *Session {
	prefix := config.StoragePrefix
	if prefix == "" {
		prefix = DefaultStoragePrefix
	}

	s := &Session{
		connectorID: config.ConnectorID,
		storageKey:  prefix + ":" + config.ConnectorID,
		store:       config.Store,
		restore:     config.Restore,
		teardown:    config.Teardown,
		state:       StateDisconnected,
		subscribers: make(map[int]func(Event)),
	}
	s.restoreSilently()
	return s
}

// ConnectorID identifies the connector instance.
func (s *Session) ConnectorID() string { return s.connectorID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Wallet returns the active wallet, or nil when disconnected.
func (s *Session) Wallet() *Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// Subscribe registers an event listener and returns its unsubscribe
// function.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// SetConnecting marks the session as mid-handshake.
func (s *Session) SetConnecting() {
	s.mu.Lock()
	s.state = StateConnecting
	s.mu.Unlock()
}

// SetDisconnected resets a failed handshake back to the idle state. It is a
// no-op while a wallet occupies the slot.
func (s *Session) SetDisconnected() {
	s.mu.Lock()
	if s.wallet == nil {
		s.state = StateDisconnected
	}
	s.mu.Unlock()
}

// SetConnected fills the wallet slot, persists the identity record and
// emits the connect event. A previously connected wallet is replaced.
func (s *Session) SetConnected(ctx context.Context, w *Wallet, identity PersistedIdentity) error {
	if s.store != nil {
		record, err := json.Marshal(identity)
		if err != nil {
			return fmt.Errorf("failed to marshal persisted identity: %w", err)
		}
		if err := s.store.Set(s.storageKey, record); err != nil {
			return fmt.Errorf("failed to persist identity: %w", err)
		}
	}

	s.mu.Lock()
	s.wallet = w
	s.state = StateConnected
	s.mu.Unlock()

	s.emit(Event{Type: EventConnect, Wallet: w})
	return nil
}

// Disconnect tears down connector resources, deletes the persisted
// identity, clears the slot and emits the disconnect event.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.wallet == nil {
		s.mu.Unlock()
		return &IntentError{Code: ErrCodeNotConnected, Message: "no wallet connected"}
	}
	s.wallet = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if s.teardown != nil {
		if err := s.teardown(ctx); err != nil {
			return fmt.Errorf("connector teardown failed: %w", err)
		}
	}
	if s.store != nil {
		if err := s.store.Delete(s.storageKey); err != nil {
			return fmt.Errorf("failed to delete persisted identity: %w", err)
		}
	}

	s.emit(Event{Type: EventDisconnect})
	return nil
}

// restoreSilently runs the one-shot restoration attempt at construction.
func (s *Session) restoreSilently() {
	if s.store == nil || s.restore == nil {
		return
	}

	record, ok, err := s.store.Get(s.storageKey)
	if err != nil || !ok {
		return
	}
	if err := ValidatePersistedIdentity(record); err != nil {
		return
	}

	var identity PersistedIdentity
	if err := json.Unmarshal(record, &identity); err != nil {
		return
	}

	w, err := s.restore(context.Background(), identity)
	if err != nil || w == nil {
		return
	}

	s.mu.Lock()
	s.wallet = w
	s.state = StateConnected
	s.mu.Unlock()

	s.emit(Event{Type: EventConnect, Wallet: w})
}

func (s *Session) emit(event Event) {
	s.mu.Lock()
	listeners := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}
