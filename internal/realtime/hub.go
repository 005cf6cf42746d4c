package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const sendBufferSize = 256

// ConnState tracks the per-connection lifecycle:
// Connecting -> Authenticated -> Active <-> Paused -> Closed.
// Rejected connections never reach the hub.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateActive
	StatePaused
	StateClosed
)

// Event is the wire frame exchanged with clients. Inbound events asserting
// a tenant id must match the connection's tenant.
type Event struct {
	Type     string          `json:"type"`
	TenantID string          `json:"tenant_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Client is one authenticated realtime connection, bound to exactly one
// tenant (or master) for its whole lifetime.
type Client struct {
	conn      *websocket.Conn
	TenantID  string
	SubjectID string
	Role      domain.Role

	groups []string
	send   chan []byte
	done   chan struct{}
	state  atomic.Int32
}

func NewClient(conn *websocket.Conn, tenantID, subjectID string, role domain.Role) *Client {
	c := &Client{
		conn:      conn,
		TenantID:  tenantID,
		SubjectID: subjectID,
		Role:      role,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

func (c *Client) IsMaster() bool {
	return c.Role == domain.RoleMaster
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// memberGroups computes the groups the client joins at registration.
func (c *Client) memberGroups() []string {
	if c.IsMaster() && c.TenantID == "" {
		return []string{MasterGroup}
	}
	groups := []string{
		TenantGroup(c.TenantID),
		UserGroup(c.TenantID, c.SubjectID),
	}
	if bucket := domain.RoleBucket(c.Role); bucket != "" {
		groups = append(groups, RoleGroup(c.TenantID, bucket))
	}
	return groups
}

// InboundHandler processes application events arriving from clients, after
// the hub's tenant validation has passed.
type InboundHandler func(ctx context.Context, c *Client, ev Event)

// Hub is the tenant-isolated realtime fan-out broker. Connections join
// tenant-scoped groups at registration; emits address exactly one group and
// payloads never cross tenant boundaries. Saturated connections lose frames
// rather than stalling emitters of other tenants.
type Hub struct {
	broker  Broker
	log     *logger.Logger
	inbound InboundHandler

	mu     sync.RWMutex
	groups map[string]map[*Client]bool

	ctx     context.Context
	cancel  context.CancelFunc
	dropped atomic.Uint64
}

func NewHub(broker Broker, log *logger.Logger, inbound InboundHandler) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		broker:  broker,
		log:     log,
		inbound: inbound,
		groups:  make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Dropped reports the number of frames lost to saturated connections.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Register joins the client to its groups and starts delivery. The first
// member of a group subscribes the hub to the broker channel.
func (h *Hub) Register(c *Client) {
	groups := c.memberGroups()
	c.groups = groups

	h.mu.Lock()
	for _, g := range groups {
		if h.groups[g] == nil {
			h.groups[g] = make(map[*Client]bool)
		}
		h.groups[g][c] = true
		if len(h.groups[g]) == 1 {
			group := g
			if err := h.broker.Subscribe(h.ctx, group, func(payload []byte) {
				h.deliver(group, payload)
			}); err != nil {
				h.log.Errorf("subscribe to group %s failed: %v", group, err)
			}
		}
	}
	h.mu.Unlock()

	c.state.Store(int32(StateActive))
}

// Unregister removes the client from all its groups atomically and signals
// the writer to shut down. The send channel is never closed, so a frame
// racing with disconnect lands in a buffer nobody reads instead of
// panicking the sender. Pending frames for the connection are dropped.
func (h *Hub) Unregister(c *Client) {
	if !c.state.CompareAndSwap(int32(StateActive), int32(StateClosed)) &&
		!c.state.CompareAndSwap(int32(StatePaused), int32(StateClosed)) &&
		!c.state.CompareAndSwap(int32(StateAuthenticated), int32(StateClosed)) {
		return
	}

	h.mu.Lock()
	for _, g := range c.groups {
		if members, ok := h.groups[g]; ok {
			if members[c] {
				delete(members, c)
				if len(members) == 0 {
					delete(h.groups, g)
					h.broker.Unsubscribe(g)
				}
			}
		}
	}
	h.mu.Unlock()

	close(c.done)
}

// Emit publishes an event to one group. Group names must be tenant
// qualified or the master group; anything else is refused so an emit can
// never span tenants.
func (h *Hub) Emit(ctx context.Context, group string, ev Event) error {
	if !ValidEmitGroup(group) {
		return fmt.Errorf("refusing emit to unqualified group %q", group)
	}
	if gt := GroupTenant(group); gt != "" && ev.TenantID != "" && ev.TenantID != gt {
		return tenant.ErrCrossTenantDenied
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return h.broker.Publish(ctx, group, payload)
}

func (h *Hub) EmitToTenant(ctx context.Context, tenantID string, ev Event) error {
	return h.Emit(ctx, TenantGroup(tenantID), ev)
}

func (h *Hub) EmitToRole(ctx context.Context, tenantID, bucket string, ev Event) error {
	return h.Emit(ctx, RoleGroup(tenantID, bucket), ev)
}

func (h *Hub) EmitToUser(ctx context.Context, tenantID, subjectID string, ev Event) error {
	return h.Emit(ctx, UserGroup(tenantID, subjectID), ev)
}

func (h *Hub) EmitToMaster(ctx context.Context, ev Event) error {
	return h.Emit(ctx, MasterGroup, ev)
}

// deliver fans a frame out to the group's local members. The group already
// encodes the tenant boundary; the per-client check is a final guard for
// membership bugs. Full send buffers drop the frame for that client only.
func (h *Hub) deliver(group string, payload []byte) {
	groupTenant := GroupTenant(group)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[group] {
		if groupTenant != "" && c.TenantID != groupTenant && !c.IsMaster() {
			continue
		}
		if c.State() != StateActive {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.dropped.Add(1)
			h.log.Warnf("dropping frame for saturated connection (tenant=%s subject=%s group=%s)",
				c.TenantID, c.SubjectID, group)
		}
	}
}

// Stop cancels broker subscriptions and closes every connection.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	clients := make(map[*Client]bool)
	for _, members := range h.groups {
		for c := range members {
			clients[c] = true
		}
	}
	h.mu.Unlock()

	for c := range clients {
		h.Unregister(c)
	}
	h.broker.Close()
}

// WritePump drains the client's send channel onto the websocket. Runs as a
// goroutine per connection; returns when the client is unregistered.
func (h *Hub) WritePump(c *Client) {
	defer c.conn.Close()

	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// ReadPump handles inbound frames in connection-arrival order. Events
// asserting a foreign tenant are rejected without dispatch; pause/resume
// control frames gate delivery.
func (h *Hub) ReadPump(ctx context.Context, c *Client) {
	defer func() {
		h.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warnf("unexpected close for subject %s: %v", c.SubjectID, err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			h.writeError(c, "invalid-payload")
			continue
		}

		if ev.TenantID != "" && !c.IsMaster() && ev.TenantID != c.TenantID {
			h.writeError(c, tenant.ReasonCrossTenant)
			continue
		}

		switch ev.Type {
		case "pause":
			c.state.CompareAndSwap(int32(StateActive), int32(StatePaused))
		case "resume":
			c.state.CompareAndSwap(int32(StatePaused), int32(StateActive))
		default:
			if h.inbound != nil {
				h.inbound(ctx, c, ev)
			}
		}
	}
}

func (h *Hub) writeError(c *Client, reason string) {
	if c.State() == StateClosed {
		return
	}
	payload, _ := json.Marshal(Event{Type: "error", Data: json.RawMessage(fmt.Sprintf("{%q:%q}", "reason", reason))})
	select {
	case c.send <- payload:
	default:
	}
}
