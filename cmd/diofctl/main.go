// Command diofctl 是面向运维的命令行工具：创建索引、导入文件、检索。
package main

import (
	"os"

	"diof-search/internal/config"
	"diof-search/internal/store"
	"diof-search/pkg/es"
)

func openStore(cfg config.Config) (store.Store, error) {
	client, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	return es.NewStore(client, cfg.Elasticsearch.Refresh), nil
}

func main() {
	if err := newRootCmd(openStore).Execute(); err != nil {
		os.Exit(1)
	}
}
