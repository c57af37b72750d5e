package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State is the connection state of a Subscriber.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Envelope is an event as received by a subscriber. Data is left encoded so
// callers decode it into the type the event carries.
type Envelope struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	URL string

	// Events restricts the stream; empty means every event type.
	Events []EventType

	ReconnectMinDelay time.Duration
	ReconnectMaxDelay time.Duration
	MaxAttempts       int // consecutive failed dials before giving up, 0 = unlimited

	ReadTimeout time.Duration

	Logger        *zerolog.Logger
	OnStateChange func(old, new State)
}

// DefaultSubscriberConfig returns reconnect settings suited to a radard hub.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:               url,
		ReconnectMinDelay: 1 * time.Second,
		ReconnectMaxDelay: 30 * time.Second,
		ReadTimeout:       pongWait + 30*time.Second,
	}
}

// Subscriber follows a hub's event stream, reconnecting with exponential
// backoff when the connection drops.
type Subscriber struct {
	cfg   SubscriberConfig
	want  map[EventType]bool
	log   zerolog.Logger
	state int32
}

// NewSubscriber creates a subscriber. Zero durations take the defaults.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	def := DefaultSubscriberConfig(cfg.URL)
	if cfg.ReconnectMinDelay <= 0 {
		cfg.ReconnectMinDelay = def.ReconnectMinDelay
	}
	if cfg.ReconnectMaxDelay <= 0 {
		cfg.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}

	s := &Subscriber{cfg: cfg, log: zerolog.Nop()}
	if len(cfg.Events) > 0 {
		s.want = make(map[EventType]bool, len(cfg.Events))
		for _, t := range cfg.Events {
			s.want[t] = true
		}
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "subscriber").Str("url", cfg.URL).Logger()
	}
	return s
}

// State returns the current connection state.
func (s *Subscriber) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Subscriber) setState(st State) {
	old := State(atomic.SwapInt32(&s.state, int32(st)))
	if old != st && s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(old, st)
	}
}

// Run delivers events to handle until ctx is done. It returns nil on
// cancellation and an error once MaxAttempts consecutive dials have failed.
func (s *Subscriber) Run(ctx context.Context, handle func(Envelope)) error {
	defer s.setState(StateClosed)

	attempts := 0
	for {
		connected, err := s.session(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			attempts = 0
		}
		attempts++

		if s.cfg.MaxAttempts > 0 && attempts > s.cfg.MaxAttempts {
			s.setState(StateDisconnected)
			return fmt.Errorf("max reconnect attempts (%d) exceeded: %w", s.cfg.MaxAttempts, err)
		}

		delay := backoff(attempts, s.cfg.ReconnectMinDelay, s.cfg.ReconnectMaxDelay)
		s.setState(StateReconnecting)
		s.log.Warn().Err(err).Int("attempt", attempts).Dur("delay", delay).Msg("stream disconnected")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func backoff(attempt int, min, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		return max
	}
	delay := min * time.Duration(1<<uint(attempt-1))
	if delay > max {
		delay = max
	}
	return delay
}

// session runs one connection. connected reports whether the dial succeeded.
func (s *Subscriber) session(ctx context.Context, handle func(Envelope)) (connected bool, err error) {
	s.setState(StateConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		s.setState(StateDisconnected)
		return false, fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return true, err
	}
	s.setState(StateConnected)
	s.log.Info().Msg("stream connected")

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			conn.Close()
		case <-stop:
		}
	}()

	extend := func() { _ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)) }
	extend()
	conn.SetPingHandler(func(data string) error {
		extend()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.setState(StateDisconnected)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, errors.New("server closed the stream")
			}
			return true, err
		}
		extend()

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.log.Debug().Err(err).Msg("skipping undecodable frame")
			continue
		}
		// Frames can still arrive for dropped types until the server applies
		// the subscription.
		if s.want != nil && !s.want[env.Type] {
			continue
		}
		handle(env)
	}
}

// subscribe narrows the server-side subscription to cfg.Events.
func (s *Subscriber) subscribe(conn *websocket.Conn) error {
	if s.want == nil {
		return nil
	}

	var drop []string
	for _, t := range allEventTypes {
		if !s.want[t] {
			drop = append(drop, string(t))
		}
	}
	if len(drop) == 0 {
		return nil
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := map[string]interface{}{"type": "unsubscribe", "events": drop}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	return nil
}
