package main

import (
	"fmt"

	"github.com/stridelabs/stride/internal/agent"
	"github.com/stridelabs/stride/internal/session"
)

// Run implements the summary command.
func (c *SummaryCmd) Run() error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}
	sess, err := session.Open(cfg.Storage.Root, c.Session)
	if err != nil {
		return err
	}
	events, err := session.ReadEvents(sess.EventsPath())
	if err != nil {
		return err
	}
	fmt.Print(agent.Synthesize(events).Render())
	return nil
}
