package main

import (
	"github.com/spf13/cobra"

	"github.com/rendis/nfstudio/pkg/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the nfstudio tools over MCP on stdio",
		Long:  "Serve the nfstudio tools over MCP on stdio. Logs go to stderr so stdout stays a clean protocol stream.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := a.buildStudio(ctx, studioOptions{withStore: true, withHub: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			srv := mcp.NewNFStudioServer(mcp.NFStudioServerDeps{
				Studio:          rt.studio,
				Logger:          a.logger,
				MermaidASCIIDir: a.cfg.MermaidASCIIDir,
			})
			a.logger.Info("mcp server ready", "db", a.cfg.DBPath)
			return srv.Serve(ctx)
		},
	}
}
