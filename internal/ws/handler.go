package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/KatariSolutions/NumberGame/internal/engine"
	"github.com/KatariSolutions/NumberGame/internal/session"
	"github.com/KatariSolutions/NumberGame/internal/types"
	pub "github.com/KatariSolutions/NumberGame/pkg/types"
)

// Round is the part of the session engine a connection drives.
type Round interface {
	Join(ctx context.Context, participant, connID string) (session.JoinResult, error)
	Leave(ctx context.Context, participant, connID string) error
	PlaceBid(ctx context.Context, participant, connID string, value engine.Value, amount float64) (pub.BidView, error)
	DeleteBid(ctx context.Context, participant, connID string, value engine.Value) (pub.BidView, error)
}

// Fanout delivers round broadcasts to a connection's outbox.
type Fanout interface {
	Register(connID string, outbox chan types.ServerMessage)
	Unregister(connID string)
}

type Options struct {
	OutboxSize   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
	Logger         *zap.Logger
}

const (
	UserHeader = "X-User-ID"
	UserQuery  = "user_id"
)

func Handler(round Round, fan Fanout, opts Options) http.HandlerFunc {
	if opts.OutboxSize <= 0 {
		opts.OutboxSize = 32
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		participant := r.Header.Get(UserHeader)
		if participant == "" {
			participant = r.URL.Query().Get(UserQuery)
		}
		if participant == "" {
			http.Error(w, "missing user id", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			conn:        conn,
			round:       round,
			participant: participant,
			connID:      uuid.NewString(),
			writeWait:   opts.WriteTimeout,
			log:         log,
		}
		c.log = log.With(zap.String("conn_id", c.connID), zap.String("participant", participant))

		out := make(chan types.ServerMessage, opts.OutboxSize)
		fan.Register(c.connID, out)
		defer fan.Unregister(c.connID)

		ctx := r.Context()
		defer func() {
			leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			_ = round.Leave(leaveCtx, participant, c.connID)
		}()

		if err := c.join(ctx); err != nil {
			c.log.Warn("join failed", zap.Error(err))
			conn.Close(websocket.StatusInternalError, "join failed")
			return
		}

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			if drain(writeCtx, out, c.write) {
				c.log.Warn("closing slow consumer")
				conn.Close(websocket.StatusPolicyViolation, "slow consumer")
			}
		}()

		// Reader loop
		for {
			readCtx, cancel := context.WithTimeout(ctx, opts.ReadTimeout)
			_, data, err := conn.Read(readCtx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					c.log.Debug("read ended", zap.Error(err))
				}
				return
			}

			cmd, err := Decode(data)
			if err != nil {
				_ = c.write(ctx, types.ServerMessage{Type: pub.MsgError, Error: err.Error()})
				continue
			}
			c.dispatch(ctx, cmd)
		}
	}
}

// drain writes queued messages until the outbox closes or a write fails. It
// reports true only when the hub closed the outbox while the connection was
// still live, i.e. the client was dropped for falling behind.
func drain(ctx context.Context, out <-chan types.ServerMessage, write func(context.Context, types.ServerMessage) error) bool {
	for msg := range out {
		if err := write(ctx, msg); err != nil {
			return false
		}
	}
	return ctx.Err() == nil
}

type client struct {
	conn        *websocket.Conn
	round       Round
	participant string
	connID      string
	writeWait   time.Duration
	log         *zap.Logger
}

func (c *client) join(ctx context.Context) error {
	res, err := c.round.Join(ctx, c.participant, c.connID)
	if err != nil {
		return err
	}
	if err := c.write(ctx, types.ServerMessage{Type: pub.MsgSessionState, Data: res.State}); err != nil {
		return err
	}
	return c.write(ctx, types.ServerMessage{Type: pub.MsgMyBids, Data: res.Bids})
}

func (c *client) dispatch(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case pub.CmdJoinSession:
		if err := c.join(ctx); err != nil {
			c.fail(ctx, err)
		}

	case pub.CmdLeaveSession:
		if err := c.round.Leave(ctx, c.participant, c.connID); err != nil {
			c.fail(ctx, err)
		}

	case pub.CmdPlaceBid, pub.CmdUpdateBid:
		ack, err := c.round.PlaceBid(ctx, c.participant, c.connID, cmd.Value, cmd.Amount)
		c.reply(ctx, pub.MsgBidAccepted, pub.MsgBidRejected, cmd, ack, err)

	case pub.CmdDeleteBid:
		ack, err := c.round.DeleteBid(ctx, c.participant, c.connID, cmd.Value)
		c.reply(ctx, pub.MsgBidDeleted, pub.MsgBidDeleteFailed, cmd, ack, err)
	}
}

func (c *client) reply(ctx context.Context, okType, rejectType string, cmd Command, ack pub.BidView, err error) {
	if err == nil {
		_ = c.write(ctx, types.ServerMessage{Type: okType, Data: ack})
		return
	}
	reason, ok := engine.ReasonOf(err)
	if !ok {
		c.fail(ctx, err)
		return
	}
	_ = c.write(ctx, types.ServerMessage{
		Type:  rejectType,
		Data:  pub.BidRejected{ChosenNumber: int(cmd.Value), Reason: string(reason)},
		Error: string(reason),
	})
}

func (c *client) fail(ctx context.Context, err error) {
	msg := "internal error"
	if errors.Is(err, session.ErrStopped) {
		msg = "server shutting down"
	}
	c.log.Warn("command failed", zap.Error(err))
	_ = c.write(ctx, types.ServerMessage{Type: pub.MsgError, Error: msg})
}

func (c *client) write(ctx context.Context, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.writeWait)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, payload)
}
