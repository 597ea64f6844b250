package store

import (
	"sync"

	"github.com/dylanmazurek/debridify/pkg/debrid/models"
	"github.com/google/uuid"
)

type EventType string

const (
	EventTorrentChanged  EventType = "torrent_changed"
	EventImportCompleted EventType = "import_completed"
	EventImportFailed    EventType = "import_failed"
)

type Event struct {
	Type    EventType             `json:"type"`
	Import  Import                `json:"import"`
	Torrent models.UnifiedTorrent `json:"torrent"`
}

type Handler func(Event)

type subscription struct {
	id      string
	handler Handler
}

// Bus fans events out to subscribers. Each handler runs on its own goroutine.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventType][]subscription)}
}

func (b *Bus) Subscribe(topic EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})
	return id
}

func (b *Bus) Unsubscribe(topic EventType, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[evt.Type]...)
	b.mu.RUnlock()

	for _, s := range subs {
		go s.handler(evt)
	}
}
