// Package es 提供了基于 Elasticsearch 的文档存储实现。
package es

import (
	"crypto/tls"
	"net/http"

	"diof-search/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewClient 根据配置创建 Elasticsearch 客户端。
// 连接使用 TLS；本地部署常见自签名证书，因此是否校验证书由 insecure_skip_verify 控制。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	return newClient(esCfg, &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: esCfg.InsecureSkipVerify}, //nolint:gosec // 本地部署允许自签名证书
	})
}

func newClient(esCfg config.ElasticsearchConfig, transport http.RoundTripper) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: esCfg.ESAddresses(),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: transport,
		// 存储错误直接返回给调用方，不做自动重试。
		DisableRetry: true,
	}
	return elasticsearch.NewClient(cfg)
}
