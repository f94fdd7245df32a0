package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`
}

func (h *HistoryCmd) Run(_ *Global, cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	builds, err := store.RecentBuilds(ctx, h.Limit)
	if err != nil {
		return err
	}
	if len(builds) == 0 {
		fmt.Println("No builds recorded yet.")
	}
	for _, b := range builds {
		fmt.Printf("%s  %-8s  %d post(s), %d regenerated, %d unchanged, %d removed  (%dms)\n",
			b.StartedAt.Local().Format(time.DateTime), b.Outcome,
			b.TotalPosts, b.Stale, b.Unchanged, b.Removed, b.DurationMS)
	}

	pin, err := store.LatestPin(ctx)
	if err != nil {
		return err
	}
	if pin != nil {
		fmt.Printf("Latest pin: %s (%q, %d file(s)) at %s\n",
			pin.CID, pin.Name, pin.Files, pin.PinnedAt.Local().Format(time.DateTime))
	}
	return nil
}
