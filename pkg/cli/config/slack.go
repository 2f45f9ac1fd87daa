package config

import (
	"github.com/urfave/cli/v3"

	"github.com/harborhq/relay/pkg/service/slack"
)

// Slack holds CLI flags for the Slack DM channel
type Slack struct {
	botToken string
}

// Flags returns CLI flags for Slack configuration
func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (DM delivery disabled when empty)",
			Category:    "Slack",
			Sources:     cli.EnvVars("RELAY_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
	}
}

// IsConfigured reports whether a bot token was provided
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure builds the Slack service from the flags
func (x *Slack) Configure() (slack.Service, error) {
	return slack.New(x.botToken)
}
