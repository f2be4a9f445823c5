// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Analyzer      AnalyzerConfig      `mapstructure:"analyzer"`
	Search        SearchConfig        `mapstructure:"search"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Seed          SeedConfig          `mapstructure:"seed"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	AllowOrigin   string `mapstructure:"allow_origin"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses          string `mapstructure:"addresses"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	IndexName          string `mapstructure:"index_name"`
	PipelineID         string `mapstructure:"pipeline_id"`
	// Refresh 透传给 index 请求的 refresh 参数（"", "true", "false", "wait_for"）。
	Refresh            string `mapstructure:"refresh"`
	CreateIndexOnStart bool   `mapstructure:"create_index_on_start"`
}

// AnalyzerConfig 描述索引的自定义文本分析器。
type AnalyzerConfig struct {
	Name string `mapstructure:"name"`
	// StopWords 可以是单个语言预设（如 "_portuguese_"），也可以是显式的停用词列表。
	StopWords []string `mapstructure:"stop_words"`
	// Stemmer 为空时不启用词干过滤。
	Stemmer string `mapstructure:"stemmer"`
}

// MaxSearchResults 是单次查询返回命中数的上限，max_results 不得超过它。
const MaxSearchResults = 10

// SearchConfig 存储查询引擎的参数。
type SearchConfig struct {
	MaxResults  int     `mapstructure:"max_results"`
	PhraseBoost float64 `mapstructure:"phrase_boost"`
	TermsBoost  float64 `mapstructure:"terms_boost"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，用于暂存异步上传的原始文件。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// SeedConfig 配置启动时的目录导入。
type SeedConfig struct {
	Dir      string `mapstructure:"dir"`
	Workers  int    `mapstructure:"workers"`
	Disabled bool   `mapstructure:"disabled"`
}

// setDefaults 注册所有默认值，使得缺省的配置文件也能得到可运行的配置。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allow_origin", "http://localhost:3001")
	v.SetDefault("server.max_upload_size", 32<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("elasticsearch.addresses", "https://localhost:9200")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.insecure_skip_verify", true)
	v.SetDefault("elasticsearch.index_name", "diof")
	v.SetDefault("elasticsearch.pipeline_id", "attachment")
	v.SetDefault("elasticsearch.refresh", "wait_for")

	v.SetDefault("analyzer.name", "diof_text")
	v.SetDefault("analyzer.stop_words", []string{"_portuguese_"})

	v.SetDefault("search.max_results", MaxSearchResults)
	v.SetDefault("search.phrase_boost", 1.0)
	v.SetDefault("search.terms_boost", 0.5)

	v.SetDefault("database.mysql.dsn", "")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "diof-ingest")
	v.SetDefault("kafka.group_id", "diof-search-consumer")

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.bucket_name", "diof-uploads")

	v.SetDefault("seed.dir", "initfile")
	v.SetDefault("seed.workers", 4)
}

// Load 从指定路径读取 YAML 配置，并允许以 DIOF_ 前缀的环境变量覆盖，
// 例如 DIOF_ELASTICSEARCH_PASSWORD。
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DIOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查会让核心行为失效的配置组合。
func (c Config) Validate() error {
	if c.Elasticsearch.Addresses == "" {
		return fmt.Errorf("elasticsearch.addresses 不能为空")
	}
	if c.Elasticsearch.IndexName == "" {
		return fmt.Errorf("elasticsearch.index_name 不能为空")
	}
	if c.Elasticsearch.PipelineID == "" {
		return fmt.Errorf("elasticsearch.pipeline_id 不能为空")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results 必须为正数, 当前为 %d", c.Search.MaxResults)
	}
	if c.Search.MaxResults > MaxSearchResults {
		return fmt.Errorf("search.max_results 不能超过 %d, 当前为 %d", MaxSearchResults, c.Search.MaxResults)
	}
	return nil
}

// ESAddresses 将逗号分隔的地址拆分为列表。
func (c ElasticsearchConfig) ESAddresses() []string {
	var out []string
	for _, a := range strings.Split(c.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
