package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Fetcher 抓取 URL 并提取正文
type Fetcher struct {
	client *http.Client
}

// NewFetcher 创建正文抓取器，timeout 防止单个页面挂起
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch 抓取 rawURL 并返回 readability 提取的纯文本
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", rawURL, res.StatusCode)
	}

	article, err := readability.FromReader(res.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extract content failed: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
