package sse

import (
	"context"
	"sync"

	"dholratri-tickets/internal/models"
)

const clientBuffer = 10

// PurchaseEventEmitter fans purchase events out to connected admin dashboards.
type PurchaseEventEmitter struct {
	clients map[chan models.PurchaseEvent]struct{}
	mu      sync.RWMutex
}

func NewPurchaseEventEmitter() *PurchaseEventEmitter {
	return &PurchaseEventEmitter{
		clients: make(map[chan models.PurchaseEvent]struct{}),
	}
}

// Subscribe registers a client until ctx is done, then closes its channel.
func (e *PurchaseEventEmitter) Subscribe(ctx context.Context) <-chan models.PurchaseEvent {
	clientChan := make(chan models.PurchaseEvent, clientBuffer)

	e.mu.Lock()
	e.clients[clientChan] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(clientChan)
	}()

	return clientChan
}

// Emit never blocks: a client whose buffer is full misses the event.
func (e *PurchaseEventEmitter) Emit(evt models.PurchaseEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for clientChan := range e.clients {
		select {
		case clientChan <- evt:
		default:
		}
	}
}

func (e *PurchaseEventEmitter) remove(clientChan chan models.PurchaseEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.clients[clientChan]; ok {
		delete(e.clients, clientChan)
		close(clientChan)
	}
}

func (e *PurchaseEventEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}
