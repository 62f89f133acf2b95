package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/pubstatic"
	"github.com/eringen/pubstatic/scaffold"
)

func (c *cli) initCmd() *cobra.Command {
	var data scaffold.SiteData
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new site",
		Long: `Create a new site skeleton in dir: pubstatic.yml, a first post in _posts/,
a _layouts/ directory for overrides, and public/ for static assets.
The directory must not exist yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if data.URL == "" {
				data.URL = "http://localhost:3000"
			}
			created, err := scaffold.Site(dir, data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range created {
				fmt.Fprintf(out, "  created %s\n", path)
			}
			fmt.Fprintf(out, "\nDone! Next steps:\n\n  cd %s\n  pubstatic serve --watch\n", dir)
			c.log.Debug("site created", zap.String("dir", dir), zap.Int("files", len(created)))
			return nil
		},
	}
	cmd.Flags().StringVar(&data.Name, "name", "", "site name (default derived from dir)")
	cmd.Flags().StringVar(&data.URL, "url", "", "canonical site URL")
	cmd.Flags().StringVar(&data.Author, "author", "", "author name")
	return cmd
}

func (c *cli) newCmd() *cobra.Command {
	var (
		tags   string
		layout string
		date   string
	)
	cmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Create a new post",
		Long:  `Create _posts/YYYY-MM-DD-<slug>.md from the title. Existing posts are never overwritten.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			slug := pubstatic.Slugify(title)
			if slug == "" {
				return fmt.Errorf("title %q has no letters or digits to build a slug from", title)
			}
			day := time.Now()
			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
				}
				day = d
			}

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.ContentDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(cfg.ContentDir, pubstatic.PostFilename(day, slug))
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%s already exists", path)
			}
			if err != nil {
				return err
			}
			werr := scaffold.Post(f, scaffold.PostData{
				Title:  title,
				Layout: layout,
				Tags:   pubstatic.SplitTags(tags),
				Date:   day,
			})
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				os.Remove(path)
				return werr
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "comma separated tags")
	cmd.Flags().StringVarP(&layout, "layout", "l", "post", "layout name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "publish date, YYYY-MM-DD (default today)")
	return cmd
}
