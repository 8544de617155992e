package factory

import (
	"fmt"

	"github.com/iWorld-y/research_report/internal/config"
	"github.com/iWorld-y/research_report/internal/search"
	"github.com/iWorld-y/research_report/internal/searxng"
	"github.com/iWorld-y/research_report/internal/tavily"
)

// NewSearcher 根据配置创建搜索实例
func NewSearcher(cfg *config.Config) (search.Searcher, error) {
	provider := cfg.Search.Provider
	if provider == "" {
		// 默认回退逻辑：如果有 tavily key，则使用 tavily
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("search provider not configured")
		}
		provider = "tavily"
	}

	switch provider {
	case "tavily":
		if cfg.Search.Tavily.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(cfg.Search.Tavily.APIKey), nil

	case "searxng":
		baseURL := cfg.Search.SearXNG.BaseURL
		if baseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(baseURL, cfg.Search.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", provider)
	}
}
