package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/KatariSolutions/NumberGame/internal/types"
)

type HubMsg interface{ isHubMsg() }

// Register adds a connection. The hub owns Outbox from here on and closes it
// on Unregister, on shutdown, or when the client falls behind.
type Register struct {
	ConnID string
	Outbox chan types.ServerMessage
}

type Unregister struct {
	ConnID string
}

type Broadcast struct {
	Msg types.ServerMessage
}

type SendTo struct {
	ConnIDs []string
	Msg     types.ServerMessage
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Register) isHubMsg()    {}
func (Unregister) isHubMsg()  {}
func (Broadcast) isHubMsg()   {}
func (SendTo) isHubMsg()      {}
func (Count) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

// Hub fans server messages out to open connections.
type Hub struct {
	inbox   chan HubMsg
	clients map[string]chan types.ServerMessage
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		clients: make(map[string]chan types.ServerMessage),
		log:     log.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Broadcast implements session.Broadcaster.
func (h *Hub) Broadcast(msg types.ServerMessage) {
	h.post(Broadcast{Msg: msg})
}

// SendTo implements session.Broadcaster.
func (h *Hub) SendTo(connIDs []string, msg types.ServerMessage) {
	h.post(SendTo{ConnIDs: connIDs, Msg: msg})
}

func (h *Hub) Register(connID string, outbox chan types.ServerMessage) {
	h.post(Register{ConnID: connID, Outbox: outbox})
}

func (h *Hub) Unregister(connID string) {
	h.post(Unregister{ConnID: connID})
}

// Count returns the number of open connections, or -1 after shutdown.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	h.post(Count{Reply: reply})
	select {
	case n := <-reply:
		return n
	case <-h.ctx.Done():
		return -1
	}
}

func (h *Hub) Shutdown() {
	h.post(ShutdownHub{})
}

func (h *Hub) post(m HubMsg) {
	select {
	case h.inbox <- m:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				if old, ok := h.clients[msg.ConnID]; ok && old != msg.Outbox {
					close(old)
				}
				h.clients[msg.ConnID] = msg.Outbox

			case Unregister:
				h.drop(msg.ConnID)

			case Broadcast:
				for id := range h.clients {
					h.deliver(id, msg.Msg)
				}

			case SendTo:
				for _, id := range msg.ConnIDs {
					h.deliver(id, msg.Msg)
				}

			case Count:
				msg.Reply <- len(h.clients)

			case ShutdownHub:
				h.closeAll()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) deliver(id string, msg types.ServerMessage) {
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- msg:
		//ok
	default:
		// Client is slow/full - drop them.
		h.log.Warn("dropping slow client", zap.String("conn_id", id), zap.String("msg", msg.Type))
		h.drop(id)
	}
}

func (h *Hub) drop(id string) {
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) closeAll() {
	for id := range h.clients {
		h.drop(id)
	}
}
