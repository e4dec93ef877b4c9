package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/coppebars/rslauncher/internal/launch"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/coppebars/rslauncher/internal/runtime"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	MessageStatus       = "status"
	MessageEvent        = "event"
	MessageNotification = "notification"
	MessageState        = "state"

	clientBuffer = 256
	writeTimeout = 10 * time.Second
)

// Message is one frame sent to event stream clients.
type Message struct {
	Type    string      `json:"type"`
	Channel string      `json:"channel,omitempty"`
	Payload interface{} `json:"payload"`
}

// Stream fans messages out to the connected clients. Clients that cannot keep up lose
// messages rather than blocking publishers.
type Stream struct {
	mu      sync.Mutex
	clients map[chan *Message]struct{}
}

func NewStream() *Stream {
	return &Stream{clients: make(map[chan *Message]struct{})}
}

func (s *Stream) Broadcast(m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c <- m:
		default:
			log.Warn().Msgf("Dropping %s message for slow event stream client", m.Type)
		}
	}
}

func (s *Stream) subscribe() (<-chan *Message, func()) {
	c := make(chan *Message, clientBuffer)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	return c, func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}
}

func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Attach forwards the launcher's publishers into the stream.
func (s *Stream) Attach(
	statuses pubsub.Publisher[runtime.StatusEvent],
	notifications pubsub.Publisher[launch.Notification],
	states pubsub.Publisher[hdb.StateUpdate],
	bus *nativecore.Bus,
) {
	statuses.AddSubscriber(pubsub.Func(func(e *runtime.StatusEvent) error {
		s.Broadcast(&Message{Type: MessageStatus, Payload: e})
		return nil
	}))
	notifications.AddSubscriber(pubsub.Func(func(n *launch.Notification) error {
		s.Broadcast(&Message{Type: MessageNotification, Payload: n})
		return nil
	}))
	states.AddSubscriber(pubsub.Func(func(u *hdb.StateUpdate) error {
		s.Broadcast(&Message{Type: MessageState, Payload: newStateMessage(u)})
		return nil
	}))
	bus.SubscribeAll(func(e *nativecore.Event) {
		s.Broadcast(&Message{Type: MessageEvent, Channel: e.Channel, Payload: e.Payload})
	})
}

type stateMessage struct {
	Index      uint64          `json:"index"`
	Database   string          `json:"database"`
	Restore    bool            `json:"restore,omitempty"`
	Transition string          `json:"transition,omitempty"`
	Patch      json.RawMessage `json:"patch,omitempty"`
	State      json.RawMessage `json:"state"`
}

func newStateMessage(u *hdb.StateUpdate) *stateMessage {
	m := &stateMessage{
		Index:      u.Index,
		Database:   u.DatabaseName,
		Restore:    u.Restore,
		Transition: u.TransitionType(),
		State:      u.NewState,
	}
	if u.TransitionWrapper != nil {
		m.Patch = u.Patch
	}
	return m
}

// EventsRoute upgrades to a websocket carrying every stream message.
type EventsRoute struct {
	stream   *Stream
	upgrader websocket.Upgrader
}

func NewEventsRoute(stream *Stream) *EventsRoute {
	return &EventsRoute{
		stream: stream,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *EventsRoute) Pattern() string {
	return "/events"
}

func (h *EventsRoute) Method() string {
	return http.MethodGet
}

func (h *EventsRoute) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		log.Error().Err(err).Msg("error upgrading event stream")
		return
	}
	defer conn.Close()

	messages, unsubscribe := h.stream.subscribe()
	defer unsubscribe()

	// the client only sends close frames; reading surfaces them
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case m := <-messages:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(m); err != nil {
				log.Debug().Err(err).Msg("event stream client went away")
				return
			}
		}
	}
}
