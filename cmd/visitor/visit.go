package main

import (
	"github.com/spf13/cobra"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/tools"
)

func newVisitCmd(o *options) *cobra.Command {
	var find []string

	cmd := &cobra.Command{
		Use:   "visit <url>",
		Short: "Visit a website and print its title, headings, links, images and text",
		Long: `Visit fetches a page and prints a JSON summary. Search terms given with --find
decide which links, images and text windows are kept.

Examples:
  visitor visit https://example.com
  visitor visit https://example.com --find pricing --find plans --max-links 10
  visitor visit https://example.com --max-images 0 --content-limit 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.logger()
			box, err := o.toolbox(cmd, logger)
			if err != nil {
				return err
			}

			reply := box.VisitWebsite(cmd.Context(), tools.VisitArgs{
				URL:          args[0],
				FindInPage:   find,
				MaxLinks:     intFlag(cmd, "max-links"),
				MaxImages:    intFlag(cmd, "max-images"),
				ContentLimit: intFlag(cmd, "content-limit"),
			}, visitor.LogNotifier{Logger: logger})
			return o.printReply(reply)
		},
	}

	cmd.Flags().StringArrayVar(&find, "find", nil, "Search term to prioritize links, images and content (repeatable)")
	cmd.Flags().Int("max-links", 0, "Maximum number of links to return (0-200)")
	cmd.Flags().Int("max-images", 0, "Maximum number of images to download (0-200)")
	cmd.Flags().Int("content-limit", 0, "Maximum number of text characters to return (0-10000)")

	return cmd
}
