package notify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
)

// maxLastN bounds the /lastN command argument.
const maxLastN = 20

var lastNPattern = regexp.MustCompile(`^/last(\d+)$`)

// SnapshotReader is the storage capability the command handler needs.
type SnapshotReader interface {
	GetRecent(ctx context.Context, limit int) ([]*domain.AssetSnapshot, error)
}

// CommandHandler answers inbound bot commands from stored data.
type CommandHandler struct {
	store    SnapshotReader
	notifier Notifier
	log      zerolog.Logger
}

// CommandHandlerOptions configures a CommandHandler.
type CommandHandlerOptions struct {
	Store    SnapshotReader
	Notifier Notifier
	Logger   zerolog.Logger
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(opts CommandHandlerOptions) *CommandHandler {
	return &CommandHandler{
		store:    opts.Store,
		notifier: opts.Notifier,
		log:      opts.Logger,
	}
}

// Handle processes one inbound message. Unrecognized text is ignored.
func (h *CommandHandler) Handle(ctx context.Context, text string) {
	match := lastNPattern.FindStringSubmatch(text)
	if match == nil {
		return
	}

	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 || n > maxLastN {
		h.reply(ctx, fmt.Sprintf("Please use a number between 1 and %d.", maxLastN))
		return
	}

	h.handleLastN(ctx, n)
}

func (h *CommandHandler) handleLastN(ctx context.Context, n int) {
	snapshots, err := h.store.GetRecent(ctx, n)
	if err != nil {
		h.log.Error().Err(err).Int("n", n).Msg("fetch recent snapshots")
		h.reply(ctx, fmt.Sprintf("⚠️ Error fetching last %d tokens.", n))
		return
	}

	if len(snapshots) == 0 {
		h.reply(ctx, "No tokens found in the database.")
		return
	}

	h.reply(ctx, fmt.Sprintf("<b>🔍 Last %d Tokens Found:</b>", len(snapshots)))

	// One message per token to stay under the message length limit.
	for _, s := range snapshots {
		h.reply(ctx, SnapshotMessage(s))
	}
}

func (h *CommandHandler) reply(ctx context.Context, text string) {
	if err := h.notifier.Send(ctx, text); err != nil {
		h.log.Error().Err(err).Msg("command reply failed")
	}
}
