package gateway

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ahmadawais/wordpress-playground/internal/correlate"
	"github.com/ahmadawais/wordpress-playground/internal/dispatch"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/logging"
	"github.com/ahmadawais/wordpress-playground/internal/infrastructure/monitoring"
	"github.com/ahmadawais/wordpress-playground/internal/protocol"
	"github.com/ahmadawais/wordpress-playground/internal/scope"
)

// Gateway owns the interception lifecycle: scope resolution, the
// forward decision, body parsing, broadcast dispatch, and response
// synthesis.
type Gateway struct {
	dispatcher    *dispatch.Dispatcher
	correlator    *correlate.Correlator
	inbound       correlate.Channel
	policy        Policy
	timeout       time.Duration
	maxBodyMemory int64
	passthrough   *Passthrough
	logger        *logging.Logger
	metrics       *monitoring.Metrics
}

// New creates a gateway with the default policy and timeout. The
// inbound channel is where engine replies arrive.
func New(dispatcher *dispatch.Dispatcher, correlator *correlate.Correlator, inbound correlate.Channel, logger *logging.Logger) *Gateway {
	return &Gateway{
		dispatcher:    dispatcher,
		correlator:    correlator,
		inbound:       inbound,
		policy:        DefaultPolicy(nil),
		timeout:       correlate.DefaultTimeout,
		maxBodyMemory: 10 << 20,
		logger:        logger,
	}
}

// WithPolicy replaces the forward-decision policy entirely.
func (g *Gateway) WithPolicy(policy Policy) *Gateway {
	g.policy = policy
	return g
}

// WithTimeout bounds how long a forward waits for its reply.
func (g *Gateway) WithTimeout(timeout time.Duration) *Gateway {
	g.timeout = timeout
	return g
}

// WithPassthrough routes unscoped static traffic to an upstream
// fetcher instead of rewriting in place.
func (g *Gateway) WithPassthrough(p *Passthrough) *Gateway {
	g.passthrough = p
	return g
}

// WithMetrics attaches the metrics collector.
func (g *Gateway) WithMetrics(m *monitoring.Metrics) *Gateway {
	g.metrics = m
	return g
}

// WithMaxBodyMemory caps in-memory body parsing.
func (g *Gateway) WithMaxBodyMemory(n int64) *Gateway {
	g.maxBodyMemory = n
	return g
}

// Activate claims every connected browser context, including ones that
// connected before the gateway became active.
func (g *Gateway) Activate() {
	g.dispatcher.Registry().ClaimAll()
	g.logger.Info("gateway activated",
		zap.Int("claimed_clients", g.dispatcher.Registry().Count()),
	)
}

// Handler returns the interception middleware. Unscoped requests fall
// through to native handling untouched.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := g.resolveScope(c.Request)
		if !ok {
			// ScopeUnresolved is not an error: native handling.
			if g.metrics != nil {
				g.metrics.NativeTotal.Inc()
			}
			c.Next()
			return
		}

		unscoped := scope.Remove(c.Request.URL.Path)
		if !g.policy(c.Request, unscoped) {
			g.servePassthrough(c, unscoped)
			return
		}

		g.serveForward(c, token, unscoped)
	}
}

// resolveScope reads the scope token from the request URL, falling
// back to the Referer so subresource fetches issued by a scoped page
// inherit its scope.
func (g *Gateway) resolveScope(r *http.Request) (string, bool) {
	if token, ok := scope.Get(r.URL.Path); ok {
		return token, true
	}
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil {
			return scope.Get(u.Path)
		}
	}
	return "", false
}

// servePassthrough reissues the equivalent request for the unscoped
// URL, replacing native handling for this event.
func (g *Gateway) servePassthrough(c *gin.Context, unscopedPath string) {
	target := requestTarget(c.Request.URL, unscopedPath)

	if g.passthrough == nil {
		// No upstream configured: strip the scope in place and let
		// native handling serve the result.
		c.Request.URL.Path = unscopedPath
		if g.metrics != nil {
			g.metrics.RecordPassthrough("rewrite")
		}
		c.Next()
		return
	}

	resp, err := g.passthrough.Fetch(c.Request, target)
	if err != nil {
		g.logger.Warn("passthrough fetch failed",
			zap.String("target", target),
			zap.Error(err),
		)
		if g.metrics != nil {
			g.metrics.RecordPassthrough("error")
		}
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for name, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(name, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		g.logger.Warn("passthrough body relay failed", zap.Error(err))
	}
	if g.metrics != nil {
		g.metrics.RecordPassthrough("ok")
	}
	c.Abort()
}

// serveForward runs one forwarding round-trip: parse, broadcast, await,
// synthesize.
func (g *Gateway) serveForward(c *gin.Context, token, unscopedPath string) {
	start := time.Now()

	fields, files := parseBody(c.Request, g.maxBodyMemory)

	msg := protocol.NewRequestMessage(token, protocol.Request{
		Path:    requestTarget(c.Request.URL, unscopedPath),
		Method:  c.Request.Method,
		Headers: collectHeaders(c.Request.Header),
		Post:    fields,
		Files:   files,
	})

	// Listen before broadcasting so an instant reply cannot race the
	// subscription.
	msg.RequestID = g.correlator.NextID()
	pending := g.correlator.Register(g.inbound, msg.RequestID)
	_, reached := g.dispatcher.Broadcast(msg)
	if g.metrics != nil {
		g.metrics.RecordBroadcast(reached)
		g.metrics.PendingReplies.Set(float64(g.correlator.PendingCount()))
	}

	resp, err := pending.Wait(c.Request.Context(), g.timeout)
	if g.metrics != nil {
		g.metrics.PendingReplies.Set(float64(g.correlator.PendingCount()))
	}
	if err != nil {
		g.failForward(c, msg, err, time.Since(start))
		return
	}

	if g.metrics != nil {
		g.metrics.RecordForward("ok", time.Since(start))
	}
	writeResponse(c, resp)
}

// failForward surfaces a failed round-trip as a failed fetch; it never
// fabricates an empty success response.
func (g *Gateway) failForward(c *gin.Context, msg *protocol.RequestMessage, err error, elapsed time.Duration) {
	outcome := "error"
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, correlate.ErrTimeout):
		outcome = "timeout"
		status = http.StatusGatewayTimeout
	case errors.Is(err, correlate.ErrProtocol):
		outcome = "protocol_violation"
	}

	g.logger.Warn("forward failed",
		zap.Int64("request_id", msg.RequestID),
		zap.String("scope", msg.Scope),
		zap.String("path", msg.Request.Path),
		zap.String("outcome", outcome),
		zap.Error(err),
	)
	if g.metrics != nil {
		g.metrics.RecordForward(outcome, elapsed)
	}
	c.AbortWithStatus(status)
}

// writeResponse synthesizes the HTTP response from an engine reply. An
// engine-reported error status is a successful protocol exchange and
// passes through unchanged.
func writeResponse(c *gin.Context, resp *protocol.Response) {
	ctype := ""
	for name, value := range resp.Headers {
		if http.CanonicalHeaderKey(name) == "Content-Type" {
			ctype = value
			continue
		}
		c.Writer.Header().Set(name, value)
	}
	if ctype == "" {
		ctype = mimetype.Detect(resp.Body).String()
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	c.Data(status, ctype, []byte(resp.Body))
	c.Abort()
}
