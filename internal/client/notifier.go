package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/bingo-backend/internal/apperror"
	"github.com/rocketscienceinc/bingo-backend/internal/entity"
	wstransport "github.com/rocketscienceinc/bingo-backend/transport/websocket"
)

const (
	defaultMaxRetries    = 5
	defaultRetryInterval = 500 * time.Millisecond
	defaultEventsBuffer  = 16
	handshakeTimeout     = 5 * time.Second
	writeTimeout         = 5 * time.Second
)

type NotifierOptions struct {
	// URLs are tried in order on every attempt, e.g. a wss:// endpoint then a ws:// fallback.
	URLs          []string
	SessionID     string
	MaxRetries    uint64
	RetryInterval time.Duration
	Buffer        int
}

// Notifier keeps one real-time connection for a session. Events announced by the
// session itself are filtered out; everything else is delivered best effort.
type Notifier struct {
	logger  *slog.Logger
	options NotifierOptions
	dialer  *websocket.Dialer
	events  chan entity.BingoEvent

	mu     sync.Mutex
	conn   *websocket.Conn
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotifier(logger *slog.Logger, options NotifierOptions) *Notifier {
	if options.MaxRetries == 0 {
		options.MaxRetries = defaultMaxRetries
	}
	if options.RetryInterval <= 0 {
		options.RetryInterval = defaultRetryInterval
	}
	if options.Buffer <= 0 {
		options.Buffer = defaultEventsBuffer
	}

	return &Notifier{
		logger:  logger.With("component", "notifier", "sessionID", options.SessionID),
		options: options,
		dialer:  &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		events:  make(chan entity.BingoEvent, options.Buffer),
		done:    make(chan struct{}),
	}
}

// Connect dials the server, retrying a bounded number of times, and starts listening.
// It must be called once. The events channel is closed when the first connection
// cannot be made, once the connection is lost for good, or when ctx ends.
func (that *Notifier) Connect(ctx context.Context) error {
	conn, err := that.dial(ctx)
	if err != nil {
		that.mu.Lock()
		that.err = err
		that.mu.Unlock()

		close(that.events)
		close(that.done)

		return err
	}

	listenCtx, cancel := context.WithCancel(ctx)

	that.mu.Lock()
	that.conn = conn
	that.cancel = cancel
	that.mu.Unlock()

	go that.listen(listenCtx, cancel)

	return nil
}

// Events yields bingo announcements of other sessions.
func (that *Notifier) Events() <-chan entity.BingoEvent {
	return that.events
}

// Err returns the reason the notifier gave up, if it did.
func (that *Notifier) Err() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.err
}

// PublishBingo announces that this session completed a line.
func (that *Notifier) PublishBingo(_ context.Context, name string) error {
	message, err := wstransport.NewMessage(wstransport.ActionBingo, wstransport.BingoPayload{
		SessionID: that.options.SessionID,
		Name:      name,
	})
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn == nil {
		return fmt.Errorf("%w: not connected", apperror.ErrTransportFailure)
	}

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err = that.conn.WriteJSON(message); err != nil {
		return fmt.Errorf("%w: failed to send bingo: %w", apperror.ErrTransportFailure, err)
	}

	return nil
}

// Close stops listening and waits until the events channel is closed.
func (that *Notifier) Close() error {
	that.mu.Lock()
	cancel := that.cancel
	conn := that.conn
	that.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	if conn != nil {
		_ = conn.Close()
	}

	<-that.done

	return nil
}

func (that *Notifier) listen(ctx context.Context, cancel context.CancelFunc) {
	log := that.logger.With("method", "listen")

	defer close(that.done)
	defer close(that.events)
	defer cancel()

	// unblock a pending read once the notifier is closed or ctx ends
	go func() {
		<-ctx.Done()

		that.mu.Lock()
		defer that.mu.Unlock()

		if that.conn != nil {
			_ = that.conn.Close()
		}
	}()

	for {
		that.mu.Lock()
		conn := that.conn
		that.mu.Unlock()

		err := that.read(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn("connection lost, reconnecting", "error", err)

		conn, err = that.dial(ctx)

		that.mu.Lock()
		that.conn = conn
		closing := ctx.Err() != nil
		if err != nil && !closing {
			that.err = err
		}
		if conn != nil && closing {
			// the close watcher may already have run, so nobody else will close it
			_ = conn.Close()
		}
		that.mu.Unlock()

		if closing {
			return
		}

		if err != nil {
			log.Error("giving up on real-time channel", "error", err)
			return
		}
	}
}

func (that *Notifier) read(ctx context.Context, conn *websocket.Conn) error {
	log := that.logger.With("method", "read")

	for {
		var message wstransport.Message
		if err := conn.ReadJSON(&message); err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}

		switch message.Action {
		case wstransport.ActionOtherBingo:
			var event entity.BingoEvent
			if err := json.Unmarshal(message.Payload, &event); err != nil {
				log.Error("failed to unmarshal event", "error", err)
				continue
			}

			if event.IsFrom(that.options.SessionID) {
				continue
			}

			select {
			case that.events <- event:
			case <-ctx.Done():
				return ctx.Err()
			default:
				log.Warn("events are not consumed, event dropped", "from", event.SessionID)
			}
		case wstransport.ActionError:
			log.Warn("server reported an error", "payload", string(message.Payload))
		}
	}
}

// dial tries every URL in order per attempt and waits for the server greeting,
// which guarantees the connection is registered for broadcasts.
func (that *Notifier) dial(ctx context.Context) (*websocket.Conn, error) {
	log := that.logger.With("method", "dial")

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = that.options.RetryInterval
	policy.MaxElapsedTime = 0

	var conn *websocket.Conn
	attempt := 0

	operation := func() error {
		attempt++

		var lastErr error
		for _, rawURL := range that.options.URLs {
			target, err := that.endpoint(rawURL)
			if err != nil {
				return backoff.Permanent(err)
			}

			conn, err = that.handshake(ctx, target)
			if err == nil {
				log.Info("connected", "url", rawURL, "attempt", attempt)
				return nil
			}

			log.Debug("dial failed", "url", rawURL, "attempt", attempt, "error", err)
			lastErr = err
		}

		return lastErr
	}

	if len(that.options.URLs) == 0 {
		return nil, fmt.Errorf("%w: no transport configured", apperror.ErrTransportFailure)
	}

	policyWithLimit := backoff.WithContext(backoff.WithMaxRetries(policy, that.options.MaxRetries), ctx)
	if err := backoff.Retry(operation, policyWithLimit); err != nil {
		return nil, fmt.Errorf("%w: failed to connect after %d attempts: %w", apperror.ErrTransportFailure, attempt, err)
	}

	return conn, nil
}

func (that *Notifier) handshake(ctx context.Context, target string) (*websocket.Conn, error) {
	conn, resp, err := that.dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}

	// closing the conn is the only way to interrupt a pending read
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	var greeting wstransport.Message
	err = conn.ReadJSON(&greeting)

	if !stop() {
		return nil, fmt.Errorf("handshake with %s interrupted: %w", target, ctx.Err())
	}

	if err != nil || greeting.Action != wstransport.ActionConnected {
		_ = conn.Close()
		return nil, fmt.Errorf("no greeting from %s: %v", target, err)
	}

	_ = conn.SetReadDeadline(time.Time{})

	return conn, nil
}

func (that *Notifier) endpoint(rawURL string) (string, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %w", apperror.ErrTransportFailure, rawURL, err)
	}

	query := target.Query()
	query.Set("sessionId", that.options.SessionID)
	target.RawQuery = query.Encode()

	return target.String(), nil
}
