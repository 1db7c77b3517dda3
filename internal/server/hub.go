package server

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/postboard/internal/domain"
)

const subscriberBuffer = 16

// Hub хранит каналы подписчиков на ленту изменений.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan domain.Event
	log  *slog.Logger
}

// NewHub - конструктор для ленты изменений.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subs: make(map[string]chan domain.Event),
		log:  log,
	}
}

// Subscribe регистрирует нового подписчика.
func (h *Hub) Subscribe() (string, <-chan domain.Event) {
	ch := make(chan domain.Event, subscriberBuffer)
	id := uuid.NewString()

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

// Unsubscribe удаляет подписчика и закрывает его канал.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers возвращает число активных подписок.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish отправляет событие всем подписчикам без блокировки.
// Порядок событий сохраняется; подписчик с заполненным буфером событие пропускает.
func (h *Hub) Publish(ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Клиент не успевает читать
			h.log.Warn("dropping feed event for slow subscriber", "subscriber", id, "type", ev.Type, "post", ev.ID)
		}
	}
}
