package fastview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer. Clients only send control frames.
	maxMessageSize = 8192

	// The rate at which ele-updates will be sent to the client, so as not to overburden.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 200
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// Client publishes updates unidirectionally to a web client via websocket.
// Messages from the client are read and discarded, which keeps the
// connection's control handlers (pong, close) running.
type Client[T any] struct {
	updates <-chan T
	ws      *websock
	rootCtx context.Context
}

// NewClient upgrades the request to a websocket and returns a publisher for the
// items of @updates. Items should be idempotent, such that intervening items can
// be discarded when they arrive faster than the publication rate and only sending
// the latest is sufficient to bring the client up to date.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	return &Client[T]{
		updates: updates,
		ws:      newWebSocket(ws),
		rootCtx: r.Context(),
	}, nil
}

// Sync publishes incoming updates until the client disconnects, the updates
// channel closes, or the request context is done, and then closes the websocket.
// Sync returns nil for all of these or the first unexpected error.
func (cli *Client[T]) Sync() error {
	ctx, cancel := context.WithCancel(cli.rootCtx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		defer cancel()
		return cli.publish(groupCtx)
	})
	// Closing the socket is the only way to unblock the reader.
	group.Go(func() error {
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	return group.Wait()
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: pong handlers are only called while readMessages is running.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if isError(err) {
					err = fmt.Errorf("ping failed: %T %w", err, err)
				}
			}
			return
		})
}

// readMessages drains messages from the client. Errors returned by websocket
// Read methods are permanent, hence any error must trigger full teardown.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, _, readErr = ws.ReadMessage()
				return
			})
		if err != nil {
			// Closures and teardown after cancellation are not failures.
			if ctx.Err() != nil || !isError(err) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (cli *Client[T]) publish(ctx context.Context) error {
	var lastSync time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case updates, ok := <-cli.updates:
			// Graceful input channel closure
			if !ok {
				return nil
			}
			// Drop updates when receiving too quickly.
			if time.Since(lastSync) < pubResolution {
				break
			}

			lastSync = time.Now()
			err := cli.ws.Write(
				ctx,
				func(ws *websocket.Conn) (writeErr error) {
					if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
						return fmt.Errorf("failed to set deadline: %T %w", writeErr, writeErr)
					}
					if writeErr = ws.WriteJSON(updates); writeErr != nil && isError(writeErr) {
						writeErr = fmt.Errorf("publish failed: %T %w", writeErr, writeErr)
					}
					return
				})
			if err != nil {
				if ctx.Err() != nil || isClosure(err) {
					return nil
				}
				return err
			}
		}
	}
}

func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline = time.Second
)

// websock serializes writes to the websocket, whose requirement is that there
// may be only one concurrent reader and one concurrent writer at a time. There
// is a single reader per client, so reads are only guarded against reentry.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame if the writer is free and closes the connection,
// which unblocks any pending read.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		<-sock.writeSem
	case <-time.After(writeDeadline):
	}
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	default:
		return ErrSockCongestion
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
