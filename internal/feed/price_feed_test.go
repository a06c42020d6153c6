package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

type submission struct {
	price     uint64
	timestamp uint64
	signature string
}

type fakeSubmitter struct {
	subs []submission
	err  error
}

func (f *fakeSubmitter) UpdatePrice(ctx context.Context, price, timestamp uint64, signature string) error {
	if f.err != nil {
		return f.err
	}
	f.subs = append(f.subs, submission{price: price, timestamp: timestamp, signature: signature})
	return nil
}

type fakeSigner struct {
	err error
}

func (f *fakeSigner) SignPrice(price, timestamp uint64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("sig:%d:%d", price, timestamp), nil
}

func newTestFeed(submitter PriceSubmitter, signer Signer) *PriceFeed {
	return New(Config{
		URL:        "wss://example.invalid/ws",
		Symbol:     "BTC-USD",
		PriceScale: 1_000_000,
	}, submitter, signer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScalePrice(t *testing.T) {
	f := newTestFeed(&fakeSubmitter{}, nil)

	tests := []struct {
		raw  string
		want uint64
		ok   bool
	}{
		{"1.5", 1_500_000, true},
		{"50000", 50_000_000_000, true},
		{"0.000001", 1, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"0.0000001", 0, false},
		{"not-a-number", 0, false},
	}
	for _, tt := range tests {
		got, ok := f.scalePrice(json.Number(tt.raw))
		assert.Equal(t, tt.ok, ok, "raw %q", tt.raw)
		if tt.ok {
			assert.Equal(t, tt.want, got, "raw %q", tt.raw)
		}
	}
}

func TestHandleTickSubmitsScaledPrice(t *testing.T) {
	submitter := &fakeSubmitter{}
	f := newTestFeed(submitter, nil)

	f.handleTick(context.Background(), tickMsg{
		Type:      "ticker",
		Symbol:    "BTC-USD",
		Price:     json.Number("42000.5"),
		Timestamp: 1_700_000_000,
	})

	require.Len(t, submitter.subs, 1)
	assert.Equal(t, uint64(42_000_500_000), submitter.subs[0].price)
	assert.Equal(t, uint64(1_700_000_000), submitter.subs[0].timestamp)
	assert.Empty(t, submitter.subs[0].signature)
}

func TestHandleTickSignsWhenSignerConfigured(t *testing.T) {
	submitter := &fakeSubmitter{}
	f := newTestFeed(submitter, &fakeSigner{})

	f.handleTick(context.Background(), tickMsg{
		Type:      "ticker",
		Price:     json.Number("2"),
		Timestamp: 1_700_000_000,
	})

	require.Len(t, submitter.subs, 1)
	assert.Equal(t, "sig:2000000:1700000000", submitter.subs[0].signature)
}

func TestHandleTickSkipsOnSignFailure(t *testing.T) {
	submitter := &fakeSubmitter{}
	f := newTestFeed(submitter, &fakeSigner{err: fmt.Errorf("keystore locked")})

	f.handleTick(context.Background(), tickMsg{Price: json.Number("2"), Timestamp: 1})

	assert.Empty(t, submitter.subs)
}

func TestHandleTickFallsBackToWallClock(t *testing.T) {
	submitter := &fakeSubmitter{}
	f := newTestFeed(submitter, nil)

	f.handleTick(context.Background(), tickMsg{Price: json.Number("2"), Timestamp: 0})

	require.Len(t, submitter.subs, 1)
	assert.NotZero(t, submitter.subs[0].timestamp)
}

func TestHandleTickToleratesEngineRejection(t *testing.T) {
	submitter := &fakeSubmitter{err: domain.ErrOracleError}
	f := newTestFeed(submitter, nil)

	// Must not panic or abort; rejection is logged and the stream continues.
	f.handleTick(context.Background(), tickMsg{Price: json.Number("2"), Timestamp: 1})

	assert.Empty(t, submitter.subs)
}

func TestHandleTickDropsUnparseablePrice(t *testing.T) {
	submitter := &fakeSubmitter{}
	f := newTestFeed(submitter, nil)

	f.handleTick(context.Background(), tickMsg{Price: json.Number("garbage"), Timestamp: 1})

	assert.Empty(t, submitter.subs)
}
