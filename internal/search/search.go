package search

import (
	"context"
	"net/url"
	"strings"
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query          string
	SearchDepth    string // "basic" or "advanced"
	MaxResults     int
	IncludeDomains []string // 仅返回这些域名下的结果
	ExcludeDomains []string // 排除这些域名下的结果
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	Type          string // 内容类型标签，可能为空
	PublishedDate string
}

// MatchDomain 判断 rawURL 的主机名是否属于 domains 中的某个域名（含子域名）
func MatchDomain(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// FilterDomains 按 include/exclude 域名列表过滤结果，供不支持域名过滤的搜索后端使用
func FilterDomains(results []Result, include, exclude []string) []Result {
	filtered := results[:0:0]
	for _, r := range results {
		if len(exclude) > 0 && MatchDomain(r.URL, exclude) {
			continue
		}
		if len(include) > 0 && !MatchDomain(r.URL, include) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
