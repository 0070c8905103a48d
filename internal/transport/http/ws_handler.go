package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/auth"
	"github.com/motormarket/motorchat-server/internal/chat"
	"github.com/motormarket/motorchat-server/internal/config"
	"github.com/motormarket/motorchat-server/internal/metrics"
	"github.com/motormarket/motorchat-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to chat.Client.
type WSHandler struct {
	svc  *chat.Service
	auth *auth.Service
	cfg  *config.Config
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(svc *chat.Service, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{svc: svc, auth: authService, cfg: cfg, log: logger}
}

// Handle authenticates the handshake and runs the connection until it closes.
// An unverified credential refuses the connection before any event handler
// runs.
// GET /ws
func (h *WSHandler) Handle(c *gin.Context) {
	identity, err := h.auth.VerifyHandshake(handshakeToken(c))
	if err != nil {
		reason, status := handshakeFailure(err)
		metrics.HandshakeRejections.WithLabelValues(reason).Inc()
		h.log.Debug().Err(err).Str("reason", reason).Msg("ws handshake refused")
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: chat.ErrCodeAuth})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	client := chat.NewClient(identity.UserID, identity.Name)
	h.svc.Connect(ctx, client)
	defer h.svc.Disconnect(client)

	limiter := newRateLimiter(h.cfg.WSMessageRateLimit)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Int64("user_id", client.UserID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *chat.Client, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			metrics.RateLimitHits.Inc()
			pushError(client, "rate_limited", "too many events", inbound.Type)
			continue
		}

		h.dispatch(ctx, client, inbound)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *chat.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Int64("user_id", client.UserID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handshakeToken pulls the credential from the query string or the
// Authorization header; browser WebSocket clients cannot set headers, so the
// query form comes first.
func handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

func handshakeFailure(err error) (reason string, status int) {
	switch {
	case errors.Is(err, auth.ErrNoCredential):
		return "no_credential", http.StatusUnauthorized
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired", http.StatusUnauthorized
	case errors.Is(err, auth.ErrMisconfigured):
		return "misconfigured", http.StatusInternalServerError
	default:
		return "invalid", http.StatusUnauthorized
	}
}
