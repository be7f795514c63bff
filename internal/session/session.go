// Package session wires one board's object store to its live channel,
// change-notification feed and persistence collaborator. It is the single
// ingestion point for remote mutations and the outbound broadcaster for
// local ones.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"realtime-canvas/internal/channel"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/store"
)

// LiveChannel is the per-board publish/subscribe topic the session speaks
// over. *channel.Client implements it.
type LiveChannel interface {
	Publish(msg model.LiveMessage) error
	Messages() <-chan model.LiveMessage
	Status() <-chan channel.Status
	Close() error
}

// Loader fetches the full board object set for resynchronization.
// *persist.Repository implements it.
type Loader interface {
	SelectAll(ctx context.Context, boardID string) ([]*model.CanvasObject, error)
}

// FeedSource subscribes to the durable change-notification stream.
// *persist.Feed implements it.
type FeedSource interface {
	Subscribe(ctx context.Context, boardID string) <-chan model.ChangeNotification
}

// Session is the per-board sync engine. Construct with New, wire the store's
// persistence sink separately, then Start. Close must run before a session
// for the same board is recreated, to avoid duplicate message delivery.
type Session struct {
	boardID string
	userID  string

	store  *store.Store
	live   LiveChannel
	loader Loader
	feed   FeedSource

	throttle *throttle

	// OnStatus, when set before Start, observes connection state changes.
	OnStatus func(channel.Status)

	mu       sync.RWMutex
	cursors  map[string]model.CursorState
	online   map[string]bool
	degraded bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session for one board. loader and feed may be nil in tests.
func New(st *store.Store, live LiveChannel, loader Loader, feed FeedSource, throttleInterval time.Duration) *Session {
	return &Session{
		boardID:  st.BoardID(),
		userID:   st.UserID(),
		store:    st,
		live:     live,
		loader:   loader,
		feed:     feed,
		throttle: newThrottle(throttleInterval),
		cursors:  make(map[string]model.CursorState),
		online:   make(map[string]bool),
	}
}

// Store exposes the session's object store to the interaction layer.
func (s *Session) Store() *store.Store { return s.store }

// Start hooks the session into the store and begins consuming the live
// channel and the change feed.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.store.SetBroadcaster(s)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.liveLoop(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.statusLoop(ctx)
	}()

	if s.feed != nil {
		notifications := s.feed.Subscribe(ctx, s.boardID)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case n, ok := <-notifications:
					if !ok {
						return
					}
					s.handleNotification(n)
				}
			}
		}()
	}

	log.Printf("[Session] Started for board %s as %s", s.boardID, s.userID)
}

// Close unsubscribes and waits for the message loops to drain.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.live != nil {
		s.live.Close()
	}
	s.wg.Wait()
	log.Printf("[Session] Closed for board %s", s.boardID)
}

// Broadcast implements store.Broadcaster. Ephemeral move and cursor frames
// are rate-limited to the configured minimum interval; durable mutation
// broadcasts always go out.
func (s *Session) Broadcast(msg model.LiveMessage) {
	switch msg.Type {
	case model.MsgObjectMove:
		if !s.throttle.allow("move:" + msg.ID) {
			return
		}
	case model.MsgObjectMoveBatch:
		if !s.throttle.allow("move_batch") {
			return
		}
	case model.MsgCursor:
		if !s.throttle.allow("cursor") {
			return
		}
	}
	if err := s.live.Publish(msg); err != nil {
		log.Printf("[Session] Broadcast %s failed: %v", msg.Type, err)
	}
}

func (s *Session) liveLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.live.Messages():
			if !ok {
				return
			}
			s.handleLive(msg)
		}
	}
}

func (s *Session) statusLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-s.live.Status():
			if !ok {
				return
			}
			s.handleStatus(ctx, st)
		}
	}
}

func (s *Session) handleStatus(ctx context.Context, st channel.Status) {
	switch st {
	case channel.StatusConnected:
		s.mu.Lock()
		wasDegraded := s.degraded
		s.degraded = false
		s.mu.Unlock()
		if wasDegraded {
			// Notifications may have been missed while disconnected.
			s.Resync(ctx)
		}
	case channel.StatusDisconnected, channel.StatusReconnecting:
		s.mu.Lock()
		s.degraded = true
		s.mu.Unlock()
	}
	if s.OnStatus != nil {
		s.OnStatus(st)
	}
}

// Cursors returns the last known remote cursor positions.
func (s *Session) Cursors() map[string]model.CursorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.CursorState, len(s.cursors))
	for id, c := range s.cursors {
		out[id] = c
	}
	return out
}

// OnlineUsers returns the ids of users currently present on the board.
func (s *Session) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	return out
}
