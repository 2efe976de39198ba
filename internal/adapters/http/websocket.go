package http

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/plaza/internal/core/domain"
	"github.com/samirrijal/plaza/internal/pkg/metrics"
)

const locationConfigKey = "location_config"

type positionFrame struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type errorFrame struct {
	Error string `json:"error"`
}

// parseLocationQuery builds a request config from the upgrade request's
// query string, starting from defaults.
func parseLocationQuery(c *fiber.Ctx, defaults domain.UpdateRequestConfig) (domain.UpdateRequestConfig, error) {
	cfg := defaults
	cfg.Source = c.Query("source", defaults.Source)

	if v := c.Query("interval_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return cfg, errors.New("interval_ms must be a non-negative integer")
		}
		cfg.MinInterval = time.Duration(ms) * time.Millisecond
	}
	for name, dst := range map[string]*bool{
		"high_accuracy": &cfg.HighAccuracy,
		"wait_accurate": &cfg.WaitForAccurateFix,
	} {
		if v := c.Query(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return cfg, errors.New(name + " must be a boolean")
			}
			*dst = b
		}
	}
	return cfg, nil
}

// LocationUpgradeMiddleware rejects non-upgrade requests and validates the
// stream parameters before the connection is hijacked.
func LocationUpgradeMiddleware(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		cfg, err := parseLocationQuery(c, deps.LocationDefaults)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		c.Locals(locationConfigKey, cfg)
		return c.Next()
	}
}

// LocationSocketHandler streams positions of one source to a WebSocket
// client. Each connection observes its own location stream; the stream is
// cancelled when the client goes away. A provider failure is reported as an
// error frame before the socket is closed.
func LocationSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		cfg, _ := c.Locals(locationConfigKey).(domain.UpdateRequestConfig)
		source := domain.NewLocationRequest(cfg).Source
		logger := requestLogger(c.Locals(loggerLocalsKey)).With("source", source)

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			_ = c.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return c.WriteMessage(websocket.TextMessage, data)
		}
		closeWith := func(code string) {
			_ = writeJSON(errorFrame{Error: code})
			mu.Lock()
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, code))
			mu.Unlock()
		}

		// Client messages are ignored; a read error means the client left.
		go func() {
			defer cancel()
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						cancel()
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		logger.Info("location socket opened")
		defer logger.Info("location socket closed")

		a, err := deps.Tracking.Open(cfg).Observe(ctx)
		if err != nil {
			logger.Warn("location stream unavailable", "error", err)
			closeWith("provider_unavailable")
			return
		}
		defer a.Cancel()

		for {
			p, ok, err := a.Next(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("location stream failed", "error", err)
					closeWith("provider_disconnected")
				}
				return
			}
			if !ok {
				return
			}
			deps.Tracking.Remember(ctx, source, p)
			if err := writeJSON(positionFrame{Lat: p.Lat, Lon: p.Lon}); err != nil {
				return
			}
		}
	}
}
