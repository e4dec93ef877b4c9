package nativecore

import (
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/rs/zerolog/log"
)

const ChannelPrepare = "prepare"

// LogChannel is the channel game output of one launch is emitted on.
func LogChannel(uid string) string {
	return "log::" + uid
}

// Event is one message on a named channel.
type Event struct {
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// Item is one file placed into the game tree during prepare.
type Item struct {
	URL  string `json:"url"`
	Path string `json:"path"`
	Size int64  `json:"known_size,omitempty"`
	SHA1 string `json:"known_sha,omitempty"`
}

type StartPayload struct {
	Item *Item `json:"item"`
}

type ChunkPayload struct {
	Path     string `json:"path"`
	Size     int    `json:"size"`
	Total    int64  `json:"total,omitempty"`
	Progress int64  `json:"progress"`
}

type ErrorPayload struct {
	Item  *Item  `json:"item"`
	Error string `json:"error"`
}

type FinishPayload struct {
	Item     *Item `json:"item,omitempty"`
	Progress int   `json:"progress"`
	Total    int   `json:"total"`
}

// PrepareEvent is emitted on the prepare channel. Exactly one of the payload fields is
// set; only finish events carry overall progress.
type PrepareEvent struct {
	UID    string         `json:"uid,omitempty"`
	Start  *StartPayload  `json:"start,omitempty"`
	Chunk  *ChunkPayload  `json:"chunk,omitempty"`
	Error  *ErrorPayload  `json:"error,omitempty"`
	Finish *FinishPayload `json:"finish,omitempty"`
}

// Emitter sends payloads to channel subscribers.
type Emitter interface {
	Emit(channel string, payload interface{})
}

// Bus delivers events to the subscribers of a channel, plus to subscribers of every
// channel.
type Bus struct {
	publisher *pubsub.SimplePublisher[Event]
}

func NewBus() *Bus {
	return &Bus{
		publisher: pubsub.NewSimplePublisher[Event](),
	}
}

func (b *Bus) Emit(channel string, payload interface{}) {
	err := b.publisher.PublishEvent(&Event{
		Channel: channel,
		Payload: payload,
	})
	if err != nil {
		log.Error().Err(err).Msgf("error delivering event on channel %s", channel)
	}
}

// Subscribe registers handler for one channel. The returned function unsubscribes.
func (b *Bus) Subscribe(channel string, handler func(*Event)) func() {
	return b.subscribe(func(e *Event) error {
		if e.Channel == channel {
			handler(e)
		}
		return nil
	})
}

// SubscribeAll registers handler for every channel.
func (b *Bus) SubscribeAll(handler func(*Event)) func() {
	return b.subscribe(func(e *Event) error {
		handler(e)
		return nil
	})
}

func (b *Bus) subscribe(f func(*Event) error) func() {
	sub := pubsub.Func(f)
	b.publisher.AddSubscriber(sub)
	return func() {
		b.publisher.RemoveSubscriber(sub)
	}
}
