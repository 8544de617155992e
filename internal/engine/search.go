package engine

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/research_report/internal/credibility"
	"github.com/iWorld-y/research_report/internal/model"
	"github.com/iWorld-y/research_report/internal/search"
)

// 检索白名单：学术与权威研究机构
var includeDomains = []string{
	"scholar.google.com",
	"researchgate.net",
	"sciencedirect.com",
	"nature.com",
	"ieee.org",
	"mckinsey.com",
	"gartner.com",
	"forrester.com",
	"bloomberg.com",
	"reuters.com",
	"ft.com",
	"wsj.com",
	"arxiv.org",
}

// 检索黑名单：社交媒体
var excludeDomains = []string{
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"instagram.com",
}

// searchInformation 制定研究计划并按计划检索资料
func (e *Engine) searchInformation(ctx context.Context, st *State) error {
	st.log.Info("正在制定研究计划...")
	plan, err := e.planResearch(ctx, st)
	if err != nil {
		return err
	}
	st.Plan = plan

	queries := st.Plan.Queries()
	st.log.Infof("研究计划包含 %d 个检索词", len(queries))

	maxResults := max(5, st.Depth*5)
	perQuery := make([][]search.Result, len(queries))
	failed := make([]error, len(queries))

	// 单个检索失败不影响其它检索，失败记录在 failed 中，goroutine 不返回错误
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrentSearches)
	for i, q := range queries {
		g.Go(func() error {
			resp, err := e.searcher.Search(gctx, &search.Request{
				Query:          q.Query,
				SearchDepth:    "advanced",
				MaxResults:     maxResults,
				IncludeDomains: includeDomains,
				ExcludeDomains: excludeDomains,
			})
			if err != nil {
				failed[i] = err
				st.log.Warnf("检索失败 [%s/%s] %q: %v", q.Keyword, q.Language, q.Query, err)
				return nil
			}
			perQuery[i] = resp.Results
			st.log.Debugf("检索 %q 返回 %d 条结果", q.Query, len(resp.Results))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := countErrors(failed); n > 0 {
		st.log.Warnf("%d/%d 个检索失败，已跳过", n, len(queries))
	}

	now := e.now()
	var collected []model.SearchResult
	for _, results := range perQuery {
		for _, r := range results {
			sr := model.SearchResult{
				URL:           r.URL,
				Title:         r.Title,
				Content:       r.Content,
				PublishedDate: r.PublishedDate,
				Type:          r.Type,
			}
			sr.CredibilityScore = credibility.Score(sr, now)
			collected = append(collected, sr)
		}
	}

	ranked := credibility.Rank(collected)
	if limit := st.Depth * 7; limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if ranked == nil {
		ranked = []model.SearchResult{}
	}
	st.log.Infof("共收集 %d 条结果，去重排序后保留 %d 条", len(collected), len(ranked))

	// 评分不依赖正文，去重截断后只为保留下来的结果抓取原文
	if err := e.enrichAll(ctx, st, ranked); err != nil {
		return err
	}

	st.ResearchData = ranked
	st.Next = StageAnalyze
	return nil
}

// planResearch 调用模型生成研究计划；输出无法解析时退回以主题为唯一关键词的计划
func (e *Engine) planResearch(ctx context.Context, st *State) (*model.ResearchPlan, error) {
	raw, err := e.llm.Complete(ctx, planningPrompt(st))
	if err != nil {
		return nil, fmt.Errorf("planning: %w", err)
	}
	plan, err := ParsePlan(raw)
	if err != nil {
		st.log.Warnf("研究计划解析失败，使用默认计划: %v", err)
		return FallbackPlan(st.Topic, st.FocusAreas), nil
	}
	return plan, nil
}

// enrichAll 并发为 results 中摘要过短的结果抓取原文，就地替换 Content
func (e *Engine) enrichAll(ctx context.Context, st *State, results []model.SearchResult) error {
	if e.fetcher == nil {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrentSearches)
	for i := range results {
		g.Go(func() error {
			results[i].Content = e.enrich(gctx, st, results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// enrich 搜索摘要过短时抓取原文正文，失败时保留摘要
func (e *Engine) enrich(ctx context.Context, st *State, r model.SearchResult) string {
	if e.fetcher == nil || r.URL == "" || utf8.RuneCountInString(r.Content) >= e.minContentLen {
		return r.Content
	}
	text, err := e.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		st.log.Debugf("抓取正文失败 %s: %v", r.URL, err)
		return r.Content
	}
	if utf8.RuneCountInString(text) <= utf8.RuneCountInString(r.Content) {
		return r.Content
	}
	if e.maxContentLen > 0 {
		if runes := []rune(text); len(runes) > e.maxContentLen {
			text = string(runes[:e.maxContentLen])
		}
	}
	return text
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}
