package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/wagerhouse/internal/domain"
)

// publishSettlement emits a BetSettledEvent for a terminal bet transition on
// the settlements channel and appends it to the settlements stream. All
// settlement paths (resolution, cancellation, emergency) share this shape.
func publishSettlement(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, event string, bet domain.Bet, finalPrice uint64) {
	if bus == nil {
		return
	}

	evt, err := json.Marshal(domain.BetSettledEvent{
		Event:      event,
		BetID:      bet.ID,
		Owner:      bet.Owner.Hex(),
		State:      string(bet.State),
		FinalPrice: finalPrice,
		Payout:     bet.Payout,
	})
	if err != nil {
		return
	}

	if pubErr := bus.Publish(ctx, domain.ChannelSettlements, evt); pubErr != nil {
		logger.WarnContext(ctx, "service: publish settlement event failed",
			slog.Uint64("bet_id", bet.ID),
			slog.String("event", event),
			slog.String("error", pubErr.Error()),
		)
	}
	if appErr := bus.StreamAppend(ctx, "stream:settlements", evt); appErr != nil {
		logger.WarnContext(ctx, "service: append settlement event failed",
			slog.Uint64("bet_id", bet.ID),
			slog.String("event", event),
			slog.String("error", appErr.Error()),
		)
	}
}

// publishStatus emits a StatusEvent on the status channel.
func publishStatus(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, evt domain.StatusEvent) {
	if bus == nil {
		return
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	if pubErr := bus.Publish(ctx, domain.ChannelStatus, data); pubErr != nil {
		logger.WarnContext(ctx, "service: publish status event failed",
			slog.String("event", evt.Event),
			slog.String("error", pubErr.Error()),
		)
	}
}
