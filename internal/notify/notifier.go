// Package notify pushes trade outcomes to operator channels. Delivery is
// multi-channel (Telegram, Discord) and best-effort: a failed send is logged
// and never surfaces into the trading path.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/trading"
)

const sendTimeout = 10 * time.Second

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

var _ trading.Notifier = (*Notifier)(nil)

// Notifier fans a notification out to every registered sender. A single
// sender failure does not prevent delivery to the rest.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyTrade formats and delivers a trade outcome. Delivery runs in the
// background so the execution path never waits on a webhook.
func (n *Notifier) NotifyTrade(ctx context.Context, result domain.TradeResult) {
	if len(n.senders) == 0 {
		return
	}

	title := fmt.Sprintf("Trade %s", result.Status)
	var b strings.Builder
	fmt.Fprintf(&b, "%s / %s\n", result.Intent.MatchTitle, result.Intent.OutcomeName)
	fmt.Fprintf(&b, "price %.4f, shares %.2f, odds %.2f vs %.2f",
		result.Intent.TargetPrice, result.Intent.SizeShares,
		result.Intent.SourceOdds, result.Intent.TargetOdds)
	if result.Err != nil {
		fmt.Fprintf(&b, "\nerror: %s", result.Err.Error())
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(bg, sendTimeout)
		defer cancel()
		n.dispatch(sendCtx, title, b.String())
	}()
}

// NotifyPendingMatch alerts operators that a newly correlated pair is waiting
// for approval.
func (n *Notifier) NotifyPendingMatch(c domain.MatchCandidate) {
	if len(n.senders) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\nvs market %q [%s]\nscore %d", c.SourceTitle, c.TargetTitle, c.TargetID, c.Score)

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		n.dispatch(sendCtx, "Match approval required", b.String())
	}()
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.Debug("notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}
