package ws

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ahmadawais/wordpress-playground/internal/correlate"
	"github.com/ahmadawais/wordpress-playground/internal/dispatch"
	"github.com/ahmadawais/wordpress-playground/internal/domain/instance"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/logging"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/monitoring"
	"github.com/ahmadawais/wordpress-playground/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin policy is enforced upstream of the gateway
	},
}

// attachMessage is the frame an engine sends to announce its scope.
type attachMessage struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
}

// Handler manages engine socket connections.
type Handler struct {
	registry  *dispatch.Registry
	inbound   correlate.Channel
	instances *instance.Manager
	logger    *logging.Logger
	metrics   *monitoring.Metrics
}

// NewHandler creates a new engine socket handler.
func NewHandler(registry *dispatch.Registry, inbound correlate.Channel, instances *instance.Manager, logger *logging.Logger) *Handler {
	return &Handler{
		registry:  registry,
		inbound:   inbound,
		instances: instances,
		logger:    logger,
	}
}

// WithMetrics attaches the metrics collector.
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// HandleConnection upgrades the request and runs the read pump until
// the peer disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("engine socket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := dispatch.NewClient(conn)
	h.registry.Add(client)
	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
	}
	h.logger.Info("engine context connected", zap.String("client_id", client.ID().String()))

	defer func() {
		h.registry.Remove(client.ID())
		h.instances.DetachClient(client.ID())
		if h.metrics != nil {
			h.metrics.WSConnections.Dec()
		}
		h.logger.Info("engine context disconnected", zap.String("client_id", client.ID().String()))
	}()

	// Welcome frame carries the opaque handle for debugging.
	client.Send(map[string]interface{}{
		"type":      protocol.TypeSystem,
		"message":   "connected to playground gateway",
		"client_id": client.ID().String(),
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("engine socket read ended", zap.Error(err))
			}
			return
		}
		h.handleFrame(client, data)
	}
}

// handleFrame routes one inbound frame by its type tag.
func (h *Handler) handleFrame(client *dispatch.Client, data []byte) {
	env, err := protocol.DecodeEnvelope(data)
	if err != nil {
		h.logger.Warn("undecodable engine frame",
			zap.String("client_id", client.ID().String()),
			zap.Error(err),
		)
		h.sendError(client, "undecodable message")
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("in", env.Type)
	}

	switch env.Type {
	case protocol.TypeResponse:
		h.handleResponse(client, data)
	case protocol.TypeAttach:
		h.handleAttach(client, data)
	case protocol.TypePing:
		client.Send(map[string]interface{}{"type": protocol.TypePong})
	default:
		h.sendError(client, "unknown message type")
	}
}

// handleResponse posts a reply onto the inbound bus. Malformed replies
// with a usable id are posted anyway: the waiting fetch must fail as a
// protocol violation, not idle into its timeout.
func (h *Handler) handleResponse(client *dispatch.Client, data []byte) {
	msg, err := protocol.DecodeResponse(data)
	if err != nil {
		h.logger.Warn("malformed engine reply",
			zap.String("client_id", client.ID().String()),
			zap.Error(err),
		)
		if errors.Is(err, protocol.ErrMalformed) && msg != nil {
			h.inbound.Post(msg)
		}
		return
	}
	h.inbound.Post(msg)
}

func (h *Handler) handleAttach(client *dispatch.Client, data []byte) {
	var msg attachMessage
	if err := sonic.Unmarshal(data, &msg); err != nil || msg.Scope == "" {
		h.sendError(client, "attach requires a scope")
		return
	}
	if err := h.instances.Attach(msg.Scope, client.ID()); err != nil {
		h.sendError(client, err.Error())
		return
	}
	h.logger.Info("engine attached",
		zap.String("client_id", client.ID().String()),
		zap.String("scope", msg.Scope),
	)
}

func (h *Handler) sendError(client *dispatch.Client, msg string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", protocol.TypeError)
	}
	client.Send(map[string]interface{}{
		"type":    protocol.TypeError,
		"message": msg,
	})
}
