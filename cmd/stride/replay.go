package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/stridelabs/stride/internal/replay"
	"github.com/stridelabs/stride/internal/session"
)

// Run implements the replay command.
func (c *ReplayCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	sess, err := session.Open(cfg.Storage.Root, c.Session)
	if err != nil {
		return err
	}

	render := func() (string, error) {
		events, err := session.ReadEvents(sess.EventsPath())
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := replay.NewFormatter(&buf, c.Verbose).Format(sess.ID, events); err != nil {
			return "", err
		}
		if c.Stats {
			stats, err := replay.Collect(events)
			if err != nil {
				return "", err
			}
			buf.WriteString("\n")
			buf.WriteString(stats.Render())
		}
		return buf.String(), nil
	}

	content, err := render()
	if err != nil {
		return err
	}

	if c.NoPager {
		if c.Follow {
			return fmt.Errorf("--follow requires the pager")
		}
		_, err := os.Stdout.WriteString(content)
		return err
	}

	pager := replay.NewPager("stride replay · " + sess.ID)
	if c.Follow {
		return pager.RunLive(sess.EventsPath(), render)
	}
	return pager.Run(content)
}
