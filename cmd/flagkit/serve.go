package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/flagkit/pkg/config"
	"github.com/dmitrymomot/flagkit/pkg/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve decisions over HTTP",
		Long: `Serve the decision API until SIGINT or SIGTERM.

Pending events are flushed and store connections closed on shutdown.`,
		Example: `  # listen on the default address from HTTP_ADDR
  flagkit serve

  # store sticky assignments in Redis and send events to the collector
  FLAGKIT_PROFILE_STORE=redis FLAGKIT_EVENT_SINKS=http flagkit serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var hc httpapi.Config
			if err := config.Load(&hc); err != nil {
				return err
			}
			if addr != "" {
				hc.Addr = addr
			}
			return a.serve(cmd.Context(), hc)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func (a *app) serve(ctx context.Context, hc httpapi.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c, checks, err := a.newClient(ctx, reg)
	if err != nil {
		return err
	}

	routerOpts := []httpapi.RouterOption{
		httpapi.WithLogger(a.log),
		httpapi.WithGatherer(reg),
		httpapi.WithMaxBodySize(hc.MaxBodySize),
	}
	for _, check := range checks {
		routerOpts = append(routerOpts, httpapi.WithReadinessCheck(check))
	}

	srv := httpapi.NewServerFromConfig(hc,
		httpapi.WithServerLogger(a.log),
		httpapi.WithShutdownHook(c.Close),
	)
	return srv.Run(ctx, httpapi.NewRouter(c, routerOpts...))
}
