package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pikchr/internal/server"
	"github.com/matzehuels/pikchr/pkg/buildinfo"
	"github.com/matzehuels/pikchr/pkg/config"
	"github.com/matzehuels/pikchr/pkg/pikchr"
	"github.com/matzehuels/pikchr/pkg/pipeline"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diagram rendering over HTTP",
		Long: `Start an HTTP server that renders pikchr source.

  POST /render   body is pikchr source; query: format, class, dark, errors,
                 scale, background
  GET  /healthz  liveness and build information

Rendered artifacts are cached in the configured backend (file, redis or
none), so several servers can share one Redis cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			runner, err := c.newRunner(cmd.Context(), cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			printServeBanner(cfg, noCache)
			srv := server.New(cfg.Server, serverDefaults(cfg), runner, c.Logger)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")

	return cmd
}

// serverDefaults maps the config's render section onto pipeline options.
func serverDefaults(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		Class:      cfg.Render.Class,
		DarkMode:   cfg.Render.DarkMode,
		HTMLErrors: cfg.Render.HTMLErrors,
		Scale:      cfg.Render.Scale,
		Background: cfg.Render.Background,
	}
}

func printServeBanner(cfg *config.Config, noCache bool) {
	backend := cfg.Cache.Backend
	if noCache {
		backend = config.BackendNone
	}
	printInfo("%s %s", StyleTitle.Render(appName+" serve"), StyleDim.Render(buildinfo.Version))
	printKeyValue("address", cfg.Server.Addr)
	printKeyValue("renderer", buildinfo.Renderer())
	printKeyValue("cache", backend)
	if !pikchr.Available() {
		printWarning("built without cgo: every render will fail with UNAVAILABLE")
	}
}
