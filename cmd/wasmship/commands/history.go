package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/wasmship/wasmship/internal/config"
	"github.com/wasmship/wasmship/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum number of runs to show"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.History.Disabled {
		return fmt.Errorf("run ledger is disabled in configuration")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer func() {
		_ = store.Close()
	}()

	runs, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return fmt.Errorf("read run ledger: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOUTCOME\tFAILED STAGE\tDURATION\tCOMMIT\tSIZE\tSHA256")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Outcome,
			r.FailedStage,
			r.Duration.Round(10*time.Millisecond),
			short(r.Commit, 8),
			r.ArtifactSize,
			short(r.ArtifactSHA256, 12),
		)
	}
	return w.Flush()
}

func short(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
