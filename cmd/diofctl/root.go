package main

import (
	"fmt"
	"os"
	"path/filepath"

	"diof-search/internal/config"
	"diof-search/internal/encoder"
	"diof-search/internal/model"
	"diof-search/internal/service"
	"diof-search/internal/store"
	"diof-search/pkg/log"

	"github.com/spf13/cobra"
)

type storeOpener func(cfg config.Config) (store.Store, error)

// app 持有一次命令执行所需的服务，在 PersistentPreRunE 中按需构建。
type app struct {
	cfg     config.Config
	indexes service.IndexService
	ingest  service.IngestService
	search  service.SearchService
}

func newRootCmd(open storeOpener) *cobra.Command {
	var (
		configPath string
		a          app
	)

	root := &cobra.Command{
		Use:           "diofctl",
		Short:         "Ingest documents into and search an Elasticsearch-backed full-text index",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := log.Init(cfg.Log); err != nil {
				return err
			}

			st, err := open(cfg)
			if err != nil {
				return fmt.Errorf("connect store: %w", err)
			}
			// CLI 不连接 MySQL：不登记 schema，也不写台账。
			a = app{
				cfg:     cfg,
				indexes: service.NewIndexService(st, nil, cfg.Analyzer, cfg.Elasticsearch.PipelineID),
				ingest:  service.NewIngestService(st, nil, nil, cfg.Elasticsearch.PipelineID, cfg.Elasticsearch.IndexName),
				search:  service.NewSearchService(st, cfg.Search, cfg.Elasticsearch.IndexName),
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (env DIOF_* always applies)")

	root.AddCommand(newCreateIndexCmd(&a), newIngestCmd(&a), newSearchCmd(&a))
	return root
}

func newCreateIndexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-index [name]",
		Short: "Register the attachment pipeline and create the index schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.cfg.Elasticsearch.IndexName
			if len(args) == 1 {
				name = args[0]
			}
			if err := a.indexes.EnsurePipeline(cmd.Context()); err != nil {
				return err
			}
			if err := a.indexes.CreateIndex(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %s\n", name)
			return nil
		},
	}
}

func newIngestCmd(a *app) *cobra.Command {
	var index string
	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, path := range args {
				id, err := ingestFile(cmd, a.ingest, path, index)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, filepath.Base(path))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&index, "index", "i", "", "target index (default from config)")
	return cmd
}

func ingestFile(cmd *cobra.Command, ingest service.IngestService, path, index string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	req, err := encoder.ReadUpload(f, filepath.Base(path))
	if err != nil {
		return "", err
	}
	return ingest.IngestUpload(cmd.Context(), req, index)
}

func newSearchCmd(a *app) *cobra.Command {
	var index string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a full-text query and print matching documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			for _, extra := range args[1:] {
				query += " " + extra
			}
			hits, err := a.search.Search(cmd.Context(), query, index)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), model.NoResultsMessage)
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.DocumentID, h.Filename)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&index, "index", "i", "", "index to search (default from config)")
	return cmd
}
