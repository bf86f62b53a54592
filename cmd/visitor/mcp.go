package main

import (
	"github.com/spf13/cobra"

	"github.com/docutag/visitor/mcpserver"
)

func newMCPCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve visit_website and view_images over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.logger()
			box, err := o.toolbox(cmd, logger)
			if err != nil {
				return err
			}

			logger.Info("serving MCP on stdio", "version", version)
			return mcpserver.New(box, version, logger).Run(cmd.Context())
		},
	}
}
