package pubsub

import (
	"context"
	"sync"

	"adscope-integrations-layer/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncEventChannel represents a subscription channel
type SyncEventChannel struct {
	ID     string
	Filter *SyncEventFilter
	Events chan domain.SyncEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// SyncEventFilter filters sync events
type SyncEventFilter struct {
	Kinds       []domain.SyncEventKind // Filter by event kinds
	ServiceName string                 // Filter by service
}

// SyncPubSub manages sync event subscriptions. It is the explicit
// notification channel between the lifecycle services and whatever
// consumers are attached; publishing never blocks.
type SyncPubSub struct {
	mu       sync.RWMutex
	channels map[string]*SyncEventChannel
	logger   zerolog.Logger
}

// NewSyncPubSub creates a new sync pub/sub system
func NewSyncPubSub(logger zerolog.Logger) *SyncPubSub {
	return &SyncPubSub{
		channels: make(map[string]*SyncEventChannel),
		logger:   logger,
	}
}

// Subscribe creates a new subscription channel
func (ps *SyncPubSub) Subscribe(ctx context.Context, filter *SyncEventFilter) *SyncEventChannel {
	subCtx, cancel := context.WithCancel(ctx)

	channel := &SyncEventChannel{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: make(chan domain.SyncEvent, 10), // Buffered channel
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[channel.ID] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", channel.ID).
		Msg("Sync subscription created")

	// Cleanup when context is cancelled
	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(channel.ID)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *SyncPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Sync subscription removed")
}

// Publish broadcasts a sync event to all matching subscribers
func (ps *SyncPubSub) Publish(event domain.SyncEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if !ps.matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			publishedCount++
		case <-channel.ctx.Done():
			// Channel is closed, skip
		default:
			// Channel buffer full, skip (non-blocking)
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("kind", string(event.Kind)).
				Msg("Channel buffer full, dropping event")
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("kind", string(event.Kind)).
			Int("subscribers", publishedCount).
			Msg("Published sync event to subscribers")
	}
}

// matchesFilter checks if an event matches the subscription filter
func (ps *SyncPubSub) matchesFilter(event domain.SyncEvent, filter *SyncEventFilter) bool {
	if filter == nil {
		return true // No filter, match all
	}

	if len(filter.Kinds) > 0 {
		kindMatch := false
		for _, kind := range filter.Kinds {
			if event.Kind == kind {
				kindMatch = true
				break
			}
		}
		if !kindMatch {
			return false
		}
	}

	if filter.ServiceName != "" && event.ServiceName != filter.ServiceName {
		return false
	}

	return true
}

// ActiveSubscriptions returns the number of attached subscribers
func (ps *SyncPubSub) ActiveSubscriptions() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
