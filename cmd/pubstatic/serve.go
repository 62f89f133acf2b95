package main

import (
	"github.com/spf13/cobra"

	"github.com/eringen/pubstatic"
)

func (c *cli) serveCmd() *cobra.Command {
	var (
		watch bool
		addr  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Preview the site and accept comments",
		Long: `Serve the site from the SQLite index. Posts with "comments: true" get a
working comment form. Lint findings are logged but never stop the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			app := pubstatic.New(cfg,
				pubstatic.WithLogger(c.log),
				pubstatic.WithWatch(watch),
			)
			return app.Start(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload when content, layouts or assets change")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides addr in the config)")
	return cmd
}
