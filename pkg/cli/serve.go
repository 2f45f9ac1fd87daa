package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/harborhq/relay/pkg/cli/config"
	httpctrl "github.com/harborhq/relay/pkg/controller/http"
	"github.com/harborhq/relay/pkg/service/delivery"
	"github.com/harborhq/relay/pkg/service/directory"
	"github.com/harborhq/relay/pkg/service/worker"
	"github.com/harborhq/relay/pkg/usecase"
	"github.com/harborhq/relay/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var sentryCfg config.Sentry
	var repoCfg config.Repository
	var slackCfg config.Slack
	var deliveryCfg config.Delivery

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("RELAY_ADDR"),
			Destination: &addr,
		},
	}

	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, deliveryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			sentryClose, err := sentryCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure Sentry")
			}
			defer sentryClose()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			policy, err := deliveryCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load delivery policy")
			}

			coordOpts := []delivery.Option{
				delivery.WithChannels(delivery.Channels{
					InApp:   policy.InAppEnabled(),
					Email:   policy.EmailEnabled(),
					Slack:   policy.SlackEnabled(),
					WebPush: policy.WebPushEnabled(),
				}),
				delivery.WithDigestWindow(policy.DigestWindow()),
			}
			if policy.SlackEnabled() && slackCfg.IsConfigured() {
				slackSvc, err := slackCfg.Configure()
				if err != nil {
					return goerr.Wrap(err, "failed to initialize Slack service")
				}
				coordOpts = append(coordOpts, delivery.WithSlack(slackSvc))
				logging.Default().Info("Slack DM channel enabled")
			} else {
				logging.Default().Info("Slack DM channel disabled")
			}
			coordinator := delivery.New(repo, coordOpts...)

			dir := directory.New()
			uc := usecase.New(repo,
				usecase.WithRegistry(usecase.DefaultRegistry(dir)),
				usecase.WithPermissions(dir),
				usecase.WithDelivery(coordinator),
			)
			defer uc.Pause.Stop()

			pollSpec := policy.Poller.Spec
			if pollSpec == "" {
				pollSpec = worker.DefaultPollSpec
			}
			poller := worker.NewSchedulePoller(repo, uc.Schedule, pollSpec)
			if err := poller.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start schedule poller")
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithDeliveryCoordinator(coordinator),
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				poller.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				poller.Stop()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
