package server

import (
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/research_report/internal/conf"
	"github.com/iWorld-y/research_report/internal/service"
)

// DefaultTimeout 未配置 server.http.timeout 时的请求超时
const DefaultTimeout = 600 * time.Second

// serverTimeout 解析 server.http.timeout，"0s" 表示不设超时；
// 未配置或无法解析时使用 DefaultTimeout
func serverTimeout(c *conf.HTTP) (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return DefaultTimeout, fmt.Errorf("invalid server.http.timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

// NewHTTPServer 创建研究报告 HTTP 服务
func NewHTTPServer(c *conf.Server, s *service.ResearchService, logger log.Logger) *http.Server {
	origins := conf.DefaultAllowedOrigins
	if c.Cors != nil && len(c.Cors.AllowedOrigins) > 0 {
		origins = c.Cors.AllowedOrigins
	}

	timeout, err := serverTimeout(c.Http)
	if err != nil {
		log.NewHelper(logger).Warnf("%v, using %s", err, timeout)
	}
	var opts = []http.ServerOption{
		http.Filter(CORS(origins)),
		http.Timeout(timeout),
	}
	if c.Http != nil && c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}

	srv := http.NewServer(opts...)

	h := &researchHandler{
		svc: s,
		mw:  middleware.Chain(recovery.Recovery()),
		log: log.NewHelper(logger),
	}
	srv.HandleFunc("/api/generate-report", h.generateReport)
	srv.HandleFunc("/api/generate-report-stream", h.generateReportStream)
	srv.HandleFunc("/healthz", healthz)

	return srv
}
