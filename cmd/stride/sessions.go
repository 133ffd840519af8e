package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/index"
	"github.com/stridelabs/stride/internal/session"
)

// Run implements the sessions command. The sqlite catalog serves the
// listing; sessions that never reached the catalog are picked up from
// disk.
func (c *SessionsCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	entries, err := catalogEntries(cfg)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTATUS\tACTIONS\tSTARTED\tGOAL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Status, e.Actions, e.CreatedAt.Format(time.DateTime), clipGoal(e.Goal))
	}
	return w.Flush()
}

func catalogEntries(cfg *config.Config) ([]index.Entry, error) {
	ix, err := index.Open(cfg.IndexPath())
	if err != nil {
		// No catalog yet: fall back to scanning the storage root.
		return scannedEntries(cfg)
	}
	defer ix.Close()

	entries, err := ix.List(context.Background())
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.ID] = true
	}

	scanned, err := scannedEntries(cfg)
	if err != nil {
		return entries, nil
	}
	for _, e := range scanned {
		if !known[e.ID] {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func scannedEntries(cfg *config.Config) ([]index.Entry, error) {
	ids, err := session.List(cfg.Storage.Root)
	if err != nil {
		return nil, err
	}
	entries := make([]index.Entry, 0, len(ids))
	for _, id := range ids {
		sess, err := session.Open(cfg.Storage.Root, id)
		if err != nil {
			continue
		}
		entries = append(entries, index.Entry{
			ID:        id,
			Status:    "unknown",
			CreatedAt: sess.CreatedAt,
		})
	}
	return entries, nil
}

func clipGoal(goal string) string {
	const max = 60
	if len(goal) <= max {
		return goal
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(goal[cut]) {
		cut--
	}
	return goal[:cut] + "..."
}
