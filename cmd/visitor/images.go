package main

import (
	"github.com/spf13/cobra"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/tools"
)

func newImagesCmd(o *options) *cobra.Command {
	var website string

	cmd := &cobra.Command{
		Use:   "images [image-url...]",
		Short: "Download images so they can be viewed locally",
		Long: `Images downloads the given image URLs, followed by the top images of --website
when it is set, and prints one markdown reference or error line per image.

Examples:
  visitor images https://example.com/a.png https://example.com/b.jpg
  visitor images --website https://example.com --max-images 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.logger()
			box, err := o.toolbox(cmd, logger)
			if err != nil {
				return err
			}

			reply := box.ViewImages(cmd.Context(), tools.ViewImagesArgs{
				ImageURLs:  args,
				WebsiteURL: website,
				MaxImages:  intFlag(cmd, "max-images"),
			}, visitor.LogNotifier{Logger: logger})
			return o.printReply(reply)
		},
	}

	cmd.Flags().StringVar(&website, "website", "", "Website whose images to download")
	cmd.Flags().Int("max-images", 0, "Maximum number of website images to download (1-200)")

	return cmd
}
