package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/pubstatic"
)

func (c *cli) buildCmd() *cobra.Command {
	var (
		force bool
		watch bool
		clean bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Lint, index and write the static site",
		Long: `Lint every post, refresh the SQLite index, and write the site to output_dir.
Lint errors stop the build unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := pubstatic.NewStore(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer store.Close()

			b := pubstatic.NewBuilder(cfg, store, c.log.Named("build"))
			b.Force = force
			b.Keep = c.keepDirs()
			if clean {
				if err := b.Clean(); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			res, err := b.Build(ctx)
			if err != nil {
				var lintErr *pubstatic.LintError
				if errors.As(err, &lintErr) {
					writeLintText(cmd.ErrOrStderr(), res.Report, res.Posts)
				}
				if !watch {
					return err
				}
				c.log.Warn("build failed, watching for changes", zap.Error(err))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "built %d posts, %d pages, %d tags, %d assets into %s in %s\n",
					res.Posts, res.Pages, res.Tags, res.Assets, cfg.OutputDir, res.Duration.Round(time.Millisecond))
			}
			if !watch {
				return nil
			}

			w, err := pubstatic.NewWatcher(
				[]string{cfg.ContentDir, cfg.LayoutDir, cfg.StaticDir},
				func(ctx context.Context) error {
					_, err := b.Build(ctx)
					return err
				},
				c.log.Named("watch"))
			if err != nil {
				return err
			}
			c.log.Info("watching for changes, press Ctrl+C to stop")
			return w.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "write the site even when lint reports errors")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rebuild when content, layouts or assets change")
	cmd.Flags().BoolVar(&clean, "clean", false, "remove output_dir before building")
	return cmd
}
