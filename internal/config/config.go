package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/research_report/internal/model"
)

// Config 项目配置结构体
//
// 同时带有 yaml 与 json 标签：CLI 通过 LoadConfig 读取 YAML，
// 服务端通过 Kratos config 扫描（基于 json）到同一结构体。
type Config struct {
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Research    ResearchConfig    `yaml:"research" json:"research"`
	Fetch       FetchConfig       `yaml:"fetch" json:"fetch"`
	Log         LogConfig         `yaml:"log" json:"log"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
	Stream      StreamConfig      `yaml:"stream" json:"stream"`
	Output      OutputConfig      `yaml:"output" json:"output"`
}

// LLMConfig LLM 相关配置（OpenAI 兼容接口）
type LLMConfig struct {
	BaseURL     string   `yaml:"base_url" json:"base_url"`
	APIKey      string   `yaml:"api_key" json:"api_key"`
	Model       string   `yaml:"model" json:"model"`
	Temperature *float32 `yaml:"temperature" json:"temperature"`
	Timeout     Duration `yaml:"timeout" json:"timeout"`
	MaxRetries  int      `yaml:"max_retries" json:"max_retries"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider string        `yaml:"provider" json:"provider"`
	Tavily   TavilyConfig  `yaml:"tavily" json:"tavily"`
	SearXNG  SearXNGConfig `yaml:"searxng" json:"searxng"`
}

// TavilyConfig Tavily 配置
type TavilyConfig struct {
	APIKey string `yaml:"api_key" json:"api_key"`
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Timeout int    `yaml:"timeout" json:"timeout"`
}

// ResearchConfig 研究流程默认参数
type ResearchConfig struct {
	Depth      int      `yaml:"depth" json:"depth"`
	Language   string   `yaml:"language" json:"language"`
	FocusAreas []string `yaml:"focus_areas" json:"focus_areas"`
	// MaxConcurrentSearches 搜索阶段并发查询数，1 表示串行
	MaxConcurrentSearches int `yaml:"max_concurrent_searches" json:"max_concurrent_searches"`
}

// FetchConfig 正文抓取配置：搜索摘要过短时用 readability 抓取原文
type FetchConfig struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	Timeout          Duration `yaml:"timeout" json:"timeout"`
	MinContentLength int      `yaml:"min_content_length" json:"min_content_length"`
	MaxContentLength int      `yaml:"max_content_length" json:"max_content_length"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// ConcurrencyConfig LLM 调用限流配置
type ConcurrencyConfig struct {
	QPS int `yaml:"qps" json:"qps"`
	RPM int `yaml:"rpm" json:"rpm"`
}

// StreamConfig 流式输出配置
type StreamConfig struct {
	ChunkDelay Duration `yaml:"chunk_delay" json:"chunk_delay"`
	Label      string   `yaml:"label" json:"label"`
}

// OutputConfig CLI 输出配置
type OutputConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// 默认值
const (
	DefaultDepth            = 3
	DefaultLanguage         = "zh"
	DefaultMaxRetries       = 3
	DefaultStreamLabel      = "数据块: "
	DefaultMinContentLength = 500
	DefaultMaxContentLength = 5000
)

// LoadConfig 从指定路径加载配置，文件中的 ${ENV} 占位符会被环境变量替换
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.SetDefaults()

	return &cfg, nil
}

// SetDefaults 填充未配置的默认值
func (c *Config) SetDefaults() {
	if c.Research.Depth <= 0 {
		c.Research.Depth = DefaultDepth
	}
	if c.Research.Language == "" {
		c.Research.Language = DefaultLanguage
	}
	if c.Research.MaxConcurrentSearches <= 0 {
		c.Research.MaxConcurrentSearches = 1
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = DefaultMaxRetries
	}
	if c.Fetch.MinContentLength <= 0 {
		c.Fetch.MinContentLength = DefaultMinContentLength
	}
	if c.Fetch.MaxContentLength <= 0 {
		c.Fetch.MaxContentLength = DefaultMaxContentLength
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = Duration(30 * time.Second)
	}
	// 负值表示不等待
	if c.Stream.ChunkDelay == 0 {
		c.Stream.ChunkDelay = Duration(time.Second)
	}
	if c.Stream.Label == "" {
		c.Stream.Label = DefaultStreamLabel
	}
	if c.Search.Provider == "" && c.Search.Tavily.APIKey != "" {
		c.Search.Provider = "tavily"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate 校验启动所必需的配置，缺少密钥时应在启动阶段直接失败
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm.api_key is required"))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.Research.Depth > model.MaxDepth {
		errs = append(errs, fmt.Errorf("research.depth must not exceed %d", model.MaxDepth))
	}
	switch c.Search.Provider {
	case "tavily":
		if c.Search.Tavily.APIKey == "" {
			errs = append(errs, errors.New("search.tavily.api_key is required"))
		}
	case "searxng":
		if c.Search.SearXNG.BaseURL == "" {
			errs = append(errs, errors.New("search.searxng.base_url is required"))
		}
	case "":
		errs = append(errs, errors.New("search.provider is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown search provider: %s", c.Search.Provider))
	}
	return errors.Join(errs...)
}
