package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/eringen/pubstatic"
)

// lintOutput is the JSON form of a lint report.
type lintOutput struct {
	OK       bool              `json:"ok"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
	Issues   []pubstatic.Issue `json:"issues"`
}

func (c *cli) lintCmd() *cobra.Command {
	var (
		strict bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check every post without writing anything",
		Long: `Check front matter, filenames, permalinks and internal links of every post.
Exits with status 1 when an error is found, or any issue with --strict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown --format %q, want text or json", format)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if strict {
				cfg.StrictLint = true
			}
			b := pubstatic.NewBuilder(cfg, nil, c.log)
			site, report, err := b.Lint(cmd.Context())
			if err != nil {
				return err
			}
			if format == "json" {
				err = writeLintJSON(cmd.OutOrStdout(), report)
			} else {
				writeLintText(cmd.OutOrStdout(), report, len(site.Posts))
			}
			if err != nil {
				return err
			}
			return report.Err()
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}

func writeLintText(w io.Writer, report pubstatic.Report, posts int) {
	for _, is := range report.Issues {
		fmt.Fprintln(w, is.String())
	}
	fmt.Fprintf(w, "%d posts, %d errors, %d warnings\n", posts, report.Errors(), report.Warnings())
}

func writeLintJSON(w io.Writer, report pubstatic.Report) error {
	out := lintOutput{
		OK:       report.Err() == nil,
		Errors:   report.Errors(),
		Warnings: report.Warnings(),
		Issues:   report.Issues,
	}
	if out.Issues == nil {
		out.Issues = []pubstatic.Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
