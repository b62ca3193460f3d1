package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
)

// Dispatcher routes domain events to the configured notifier. A nil
// notifier turns every dispatch into a no-op, so callers never branch
// on whether notifications are enabled.
type Dispatcher struct {
	notifier Notifier
	log      zerolog.Logger
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Notifier Notifier
	Logger   zerolog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	return &Dispatcher{
		notifier: opts.Notifier,
		log:      opts.Logger,
	}
}

// NewAsset announces a newly stored asset. Sent only for inserts,
// never for in-place updates.
func (d *Dispatcher) NewAsset(ctx context.Context, s *domain.AssetSnapshot) {
	d.send(ctx, "🔔 <b>New token found!</b>\n\n"+SnapshotMessage(s))
}

// Pump announces a detected price pump.
func (d *Dispatcher) Pump(ctx context.Context, sig *domain.PumpSignal) {
	d.send(ctx, PumpMessage(sig))
}

// Critical announces that the run loop crossed its failure threshold.
func (d *Dispatcher) Critical(ctx context.Context, consecutiveFailures int, lastErr error) {
	d.send(ctx, fmt.Sprintf(
		"🚨 <b>Screener unhealthy:</b> %d consecutive cycle failures.\nLast error: %s",
		consecutiveFailures, lastErr))
}

// Shutdown announces that the run loop stopped.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.send(ctx, "⏹ Screener stopped.")
}

// Plain sends unformatted text, used by the command handler.
func (d *Dispatcher) Plain(ctx context.Context, text string) {
	d.send(ctx, text)
}

func (d *Dispatcher) send(ctx context.Context, text string) {
	if d == nil || d.notifier == nil {
		return
	}
	if err := d.notifier.Send(ctx, text); err != nil {
		d.log.Error().Err(err).Msg("notification delivery failed")
	}
}
