// Package replay drives a running auction service from a scripted sale
// log and prints every team's bid table head after each sale.
package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/okian/bazaar/pkg/logger"
)

const (
	defaultTop     = 5
	defaultTimeout = 30 * time.Second
)

// Run replays the script against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	if cfg.Top <= 0 {
		cfg.Top = defaultTop
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	log := logger.Named("replay")

	script, err := LoadScript(cfg.Script)
	if err != nil {
		return Stats{}, err
	}

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return Stats{}, err
	}
	if cfg.Reset {
		if err := c.reset(ctx); err != nil {
			return Stats{}, err
		}
		log.Info(ctx, "auction reset")
	}

	state, err := c.state(ctx)
	if err != nil {
		return Stats{}, err
	}

	log.Info(ctx, "starting replay",
		logger.String("script", script.Name),
		logger.Int("sales", len(script.Sales)),
		logger.String("baseURL", cfg.BaseURL),
	)

	start := time.Now()
	var stats Stats
	for i, sale := range script.Sales {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res := c.sell(ctx, sale)
		stats.add(res.Outcome)
		writeResult(cfg.Out, i+1, res)

		if res.Outcome != OutcomeAccepted {
			log.Warn(ctx, "scripted sale not applied",
				logger.Int("step", i+1),
				logger.String("outcome", string(res.Outcome)),
				logger.String("constraint", res.Constraint),
				logger.String("message", res.Message),
			)
			continue
		}
		for _, t := range state.Teams {
			tbl, err := c.bids(ctx, t.ID)
			if err != nil {
				log.Error(ctx, "bid table unavailable", logger.String("team", t.ID), logger.Error(err))
				continue
			}
			writeBidHead(cfg.Out, tbl, cfg.Top)
		}
	}
	stats.Duration = time.Since(start)

	final, err := c.state(ctx)
	if err == nil {
		fmt.Fprintf(cfg.Out, "\nsold %d, unsold %d\n", final.Sold, final.Unsold)
	}

	log.Info(ctx, "replay finished",
		logger.Int("posted", stats.Posted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
	)
	return stats, nil
}

func writeResult(w io.Writer, step int, r Result) {
	s := r.Sale
	switch r.Outcome {
	case OutcomeAccepted:
		fmt.Fprintf(w, "\n#%d player %d -> %s for %d\n", step, s.Player, s.Team, s.Price)
	case OutcomeRejected:
		fmt.Fprintf(w, "\n#%d player %d -> %s for %d rejected (%s): %s\n", step, s.Player, s.Team, s.Price, r.Constraint, r.Message)
	default:
		fmt.Fprintf(w, "\n#%d player %d -> %s for %d %s (status %d) %s\n", step, s.Player, s.Team, s.Price, r.Outcome, r.Status, r.Message)
	}
}

func writeBidHead(w io.Writer, t bidTable, top int) {
	n := t.Needs
	fmt.Fprintf(w, "  %s: %d slots, %d left, cap %d, bowlers needed %d\n",
		t.TeamID, n.SlotsLeft, n.Remaining, n.HardCap, n.BowlersNeeded)
	if len(t.Records) == 0 {
		fmt.Fprintln(w, "    (squad complete)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "    ID\tNAME\tROLE\tTIER\tOVERALL\tVERDICT\tMAX BID")
	for i, r := range t.Records {
		if i == top {
			break
		}
		fmt.Fprintf(tw, "    %d\t%s\t%s\t%d\t%.2f\t%s\t%d\n",
			r.PlayerID, r.Name, r.Role, r.Tier, r.Overall, r.Verdict, r.Recommended)
	}
	_ = tw.Flush()
}
