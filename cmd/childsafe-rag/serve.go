package main

import (
	"github.com/spf13/cobra"

	rag "github.com/childsafe-za/childsafe-rag"
	"github.com/childsafe-za/childsafe-rag/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			client, err := rag.NewRAGClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			return api.Serve(cmd.Context(), cfg.Server, client)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	return cmd
}

func newMCPCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pipeline as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			client, err := rag.NewRAGClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			return rag.ServeStdio(client)
		},
	}
}
