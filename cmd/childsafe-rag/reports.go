package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	rag "github.com/childsafe-za/childsafe-rag"
	"github.com/childsafe-za/childsafe-rag/ingest"
)

func newReportsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Manage the annual report collection",
	}
	cmd.AddCommand(newReportsListCommand())
	cmd.AddCommand(newReportsDownloadCommand(opts))
	cmd.AddCommand(newReportsIngestCommand(opts))
	return cmd
}

func newReportsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the known reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "YEAR\tFILE\tURL")
			for _, r := range ingest.Reports() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Year, r.FileName(), r.URL)
			}
			return w.Flush()
		},
	}
}

func newReportsDownloadCommand(opts *rootOptions) *cobra.Command {
	var report string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download one report (by year) or all of them into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.read()
			if err != nil {
				return err
			}
			paths, err := rag.NewDownloader(cfg).Download(cmd.Context(), report)
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s\n", p)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&report, "report", ingest.AllReports, "Report year to download, or 'all'")
	return cmd
}

func newReportsIngestCommand(opts *rootOptions) *cobra.Command {
	var chunkSize, chunkOverlap int
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Rebuild the vector collection from the downloaded PDFs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("chunk-size") {
				cfg.RAG.Splitter.ChunkSize = chunkSize
			}
			if cmd.Flags().Changed("chunk-overlap") {
				cfg.RAG.Splitter.ChunkOverlap = chunkOverlap
			}
			ix, store, err := rag.NewIndexer(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := ix.Run(cmd.Context(), cfg.Ingest.DataDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total chunks added: %d\n", stats.Chunks)
			if stats.Total >= 0 {
				fmt.Fprintf(out, "Total documents in collection: %d\n", stats.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 800, "Max size of text chunks (chars)")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 50, "Overlap between chunks (chars)")
	return cmd
}
