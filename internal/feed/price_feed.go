// Package feed streams reference prices from an external exchange WebSocket
// into the engine. Each accepted tick is converted to micro-units, signed
// with the oracle key when one is configured, and submitted as a price
// update.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// PriceSubmitter pushes accepted ticks into the engine. The oracle service
// satisfies it.
type PriceSubmitter interface {
	UpdatePrice(ctx context.Context, price, timestamp uint64, signature string) error
}

// Signer produces the attestation over each tick. It is nil when attestation
// is not required.
type Signer interface {
	SignPrice(price, timestamp uint64) (string, error)
}

// Config holds the feed connection settings.
type Config struct {
	// URL is the exchange WebSocket endpoint.
	URL string

	// Symbol is the ticker symbol to subscribe to, e.g. "BTC-USD".
	Symbol string

	// PriceScale converts quote-currency prices to micro-units. A feed
	// quoting whole units uses 1_000_000.
	PriceScale uint64
}

// subscribeCommand is the JSON frame sent after connecting.
type subscribeCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Symbols []string `json:"symbols"`
}

// tickMsg is an incoming ticker frame. Price arrives as a decimal string.
type tickMsg struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	Price     json.Number `json:"price"`
	Timestamp int64       `json:"timestamp"`
}

// PriceFeed consumes ticker frames from the exchange WebSocket and submits
// them as oracle price updates. It reconnects with exponential backoff on
// disconnect.
type PriceFeed struct {
	cfg       Config
	submitter PriceSubmitter
	signer    Signer
	logger    *slog.Logger
}

// New creates a PriceFeed. signer may be nil when the engine accepts
// unattested updates.
func New(cfg Config, submitter PriceSubmitter, signer Signer, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		cfg:       cfg,
		submitter: submitter,
		signer:    signer,
		logger:    logger.With(slog.String("component", "price_feed")),
	}
}

// Run connects, subscribes to the configured symbol, and streams ticks until
// the context is cancelled. Reconnects with backoff on disconnect.
func (f *PriceFeed) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("feed disconnected, reconnecting",
			slog.String("url", f.cfg.URL),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runConnection holds one WebSocket session: dial, subscribe, and read until
// the connection drops or the context is cancelled.
func (f *PriceFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Close the connection when the context is cancelled so ReadMessage
	// unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	// Keepalive pings.
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	sub := subscribeCommand{
		Type:    "subscribe",
		Channel: "ticker",
		Symbols: []string{f.cfg.Symbol},
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe to %q: %w", f.cfg.Symbol, err)
	}

	f.logger.Info("feed subscribed",
		slog.String("url", f.cfg.URL),
		slog.String("symbol", f.cfg.Symbol),
	)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}

		var tick tickMsg
		if err := json.Unmarshal(message, &tick); err != nil || tick.Type != "ticker" {
			continue
		}
		if tick.Symbol != "" && tick.Symbol != f.cfg.Symbol {
			continue
		}

		f.handleTick(ctx, tick)
	}
}

// handleTick converts one ticker frame to a micro-unit price update and
// submits it. Rejected updates (stale, out of window, regressing) are logged
// and skipped; the stream continues.
func (f *PriceFeed) handleTick(ctx context.Context, tick tickMsg) {
	price, ok := f.scalePrice(tick.Price)
	if !ok {
		f.logger.Warn("feed: unparseable price", slog.String("raw", tick.Price.String()))
		return
	}

	timestamp := uint64(tick.Timestamp)
	if tick.Timestamp <= 0 {
		timestamp = uint64(time.Now().Unix())
	}

	var signature string
	if f.signer != nil {
		sig, err := f.signer.SignPrice(price, timestamp)
		if err != nil {
			f.logger.Error("feed: sign tick failed", slog.String("error", err.Error()))
			return
		}
		signature = sig
	}

	if err := f.submitter.UpdatePrice(ctx, price, timestamp, signature); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			f.logger.Warn("feed: tick rejected",
				slog.Uint64("price", price),
				slog.Uint64("timestamp", timestamp),
				slog.Uint64("code", uint64(de.Code)),
			)
			return
		}
		f.logger.Error("feed: submit tick failed",
			slog.Uint64("price", price),
			slog.String("error", err.Error()),
		)
	}
}

// scalePrice converts a decimal price string to micro-units using the
// configured scale.
func (f *PriceFeed) scalePrice(raw json.Number) (uint64, bool) {
	v, err := strconv.ParseFloat(raw.String(), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	scaled := v * float64(f.cfg.PriceScale)
	if scaled < 1 {
		return 0, false
	}
	return uint64(scaled), true
}
