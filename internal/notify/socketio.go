package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIOConfig configures a SocketIO notifier.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// SocketIO emits events to a socket.io server. Events emitted before the
// connection is established are buffered by the client and flushed on
// connect.
type SocketIO struct {
	client *socket.Socket
	logger *slog.Logger
}

// NewSocketIO starts connecting to the server and returns immediately.
func NewSocketIO(ctx context.Context, cfg SocketIOConfig) (*SocketIO, error) {
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notify URL %q must be absolute", cfg.URL)
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	logger := ctxlog.FromContext(ctx).With("component", "notify", "url", cfg.URL, "namespace", namespace)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Notifier connected", "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			logger.Warn("Notifier connection failed", "error", errs[0])
		}
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Debug("Notifier disconnected", "reason", reason)
	})

	io.Connect()
	return &SocketIO{client: io, logger: logger}, nil
}

// Publish implements Notifier.
func (s *SocketIO) Publish(ctx context.Context, event string, payload any) {
	// Round-trip through JSON so the client sees plain objects.
	var data any
	raw, err := json.Marshal(payload)
	if err == nil {
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		s.logger.Warn("Dropping unencodable event", "event", event, "error", err)
		return
	}
	s.logger.Debug("Emitting event", "event", event, "connected", s.client.Connected())
	s.client.Emit(event, data)
}

// Close implements Notifier.
func (s *SocketIO) Close() error {
	s.logger.Debug("Disconnecting notifier")
	s.client.Disconnect()
	return nil
}
