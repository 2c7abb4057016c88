package commands

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lattica/lattica/chain"
	tmos "github.com/lattica/lattica/libs/os"
	"github.com/lattica/lattica/validator"
)

// RunCmd runs the validator daemon until it receives SIGINT or SIGTERM.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the validator daemon",
	RunE:  runValidator,
}

func runValidator(cmd *cobra.Command, args []string) error {
	if err := config.ValidateBasic(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client, err := chain.NewWSClient(ctx, config.Chain.Endpoint, logger,
		chain.CallTimeout(config.Chain.CallTimeout))
	if err != nil {
		return err
	}

	metrics := validator.NopMetrics()
	if config.Instrumentation.Prometheus {
		metrics = validator.PrometheusMetrics(config.Instrumentation.Namespace)

		srv := &http.Server{
			Addr:    config.Instrumentation.PrometheusListenAddr,
			Handler: promhttp.Handler(),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("prometheus listener failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	v, err := validator.New(ctx, config, client, logger, validator.WithMetrics(metrics))
	if err != nil {
		client.Close()
		return err
	}

	if err := v.Start(ctx); err != nil {
		client.Close()
		return err
	}
	logger.Info("validator running", "moniker", config.Moniker, "netuid", config.Chain.Netuid)

	tmos.TrapSignal(logger, func() {
		cancel()
		v.Wait()
		client.Close()
	})

	// Run forever.
	select {}
}
