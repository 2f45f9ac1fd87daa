package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// DeliveryPolicy is the TOML delivery-policy document. Channels left
// out of the file default to enabled.
type DeliveryPolicy struct {
	Channels struct {
		InApp   *bool `toml:"in_app"`
		Email   *bool `toml:"email"`
		Slack   *bool `toml:"slack"`
		WebPush *bool `toml:"web_push"`
	} `toml:"channels"`

	Poller struct {
		// Spec is a robfig/cron expression or descriptor for the
		// quiet-hours sweep cadence
		Spec string `toml:"spec"`
	} `toml:"poller"`

	Digest struct {
		// Window is the digest lookback as a Go duration string
		Window string `toml:"window"`
	} `toml:"digest"`
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// InAppEnabled reports whether the in-app channel is on
func (p *DeliveryPolicy) InAppEnabled() bool { return enabled(p.Channels.InApp) }

// EmailEnabled reports whether the email digest channel is on
func (p *DeliveryPolicy) EmailEnabled() bool { return enabled(p.Channels.Email) }

// SlackEnabled reports whether the Slack DM channel is on
func (p *DeliveryPolicy) SlackEnabled() bool { return enabled(p.Channels.Slack) }

// WebPushEnabled reports whether the web push channel is on
func (p *DeliveryPolicy) WebPushEnabled() bool { return enabled(p.Channels.WebPush) }

// DigestWindow returns the parsed digest lookback, defaulting to 24h
func (p *DeliveryPolicy) DigestWindow() time.Duration {
	if p.Digest.Window == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(p.Digest.Window)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// Validate rejects a malformed policy at load time
func (p *DeliveryPolicy) Validate() error {
	if p.Digest.Window != "" {
		if _, err := time.ParseDuration(p.Digest.Window); err != nil {
			return goerr.Wrap(err, "invalid digest window", goerr.V("window", p.Digest.Window))
		}
	}
	return nil
}

// Delivery holds CLI flags for delivery policy configuration
type Delivery struct {
	policyFile string
	pollerSpec string
}

// Flags returns CLI flags for delivery configuration
func (d *Delivery) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "delivery-policy",
			Usage:       "Path to the TOML delivery-policy file",
			Category:    "Delivery",
			Sources:     cli.EnvVars("RELAY_DELIVERY_POLICY"),
			Destination: &d.policyFile,
		},
		&cli.StringFlag{
			Name:        "poller-spec",
			Usage:       "Cron cadence for the quiet-hours sweep (overrides the policy file)",
			Category:    "Delivery",
			Sources:     cli.EnvVars("RELAY_POLLER_SPEC"),
			Destination: &d.pollerSpec,
		},
	}
}

// Configure loads and validates the delivery policy. Without a policy
// file every channel is enabled with default settings.
func (d *Delivery) Configure() (*DeliveryPolicy, error) {
	policy := &DeliveryPolicy{}

	if d.policyFile != "" {
		raw, err := os.ReadFile(d.policyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read delivery policy", goerr.V("path", d.policyFile))
		}
		if err := toml.Unmarshal(raw, policy); err != nil {
			return nil, goerr.Wrap(err, "failed to parse delivery policy", goerr.V("path", d.policyFile))
		}
		if err := policy.Validate(); err != nil {
			return nil, err
		}
	}

	if d.pollerSpec != "" {
		policy.Poller.Spec = d.pollerSpec
	}

	return policy, nil
}
