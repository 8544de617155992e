package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/research_report/internal/config"
	"github.com/iWorld-y/research_report/internal/fetch"
	"github.com/iWorld-y/research_report/internal/llm"
	"github.com/iWorld-y/research_report/internal/logger"
	"github.com/iWorld-y/research_report/internal/model"
	"github.com/iWorld-y/research_report/internal/search"
	"github.com/iWorld-y/research_report/internal/search/factory"
)

// ContentFetcher 抓取网页正文
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Engine 研究报告生成引擎：search → analyze → generate
type Engine struct {
	llm      llm.Completer
	searcher search.Searcher

	fetcher       ContentFetcher
	minContentLen int
	maxContentLen int

	maxConcurrentSearches int
	now                   func() time.Time
}

// Option Engine 选项
type Option func(*Engine)

// WithFetcher 搜索摘要短于 minLen 时抓取原文，正文截断到 maxLen
func WithFetcher(f ContentFetcher, minLen, maxLen int) Option {
	return func(e *Engine) {
		e.fetcher = f
		e.minContentLen = minLen
		e.maxContentLen = maxLen
	}
}

// WithMaxConcurrentSearches 搜索阶段的并发查询数
func WithMaxConcurrentSearches(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrentSearches = n
		}
	}
}

// WithClock 替换时间来源（评分的时效项与报告生成时间）
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New 使用给定的模型与搜索协作方创建引擎
func New(completer llm.Completer, searcher search.Searcher, opts ...Option) *Engine {
	e := &Engine{
		llm:                   completer,
		searcher:              searcher,
		maxConcurrentSearches: 1,
		now:                   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEngine 根据配置初始化 LLM、限流器、搜索客户端与正文抓取器
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	chatModel, err := llm.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	limiter := llm.NewLimiter(cfg.Concurrency)
	logger.Log.Infof("限流器已配置: Limit=%.2f req/s, Burst=%d", float64(limiter.Limit()), limiter.Burst())

	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	completer := llm.NewClient(chatModel,
		llm.WithLimiter(limiter),
		llm.WithRetry(cfg.LLM.MaxRetries, 2*time.Second),
		llm.WithSystemPrompt(systemPrompt),
	)

	opts := []Option{WithMaxConcurrentSearches(cfg.Research.MaxConcurrentSearches)}
	if cfg.Fetch.Enabled {
		opts = append(opts, WithFetcher(fetch.NewFetcher(cfg.Fetch.Timeout.Std()), cfg.Fetch.MinContentLength, cfg.Fetch.MaxContentLength))
	}

	return New(completer, searcher, opts...), nil
}

// RunOptions 运行选项
type RunOptions struct {
	// ProgressCallback 进度回调，progress 取值 0-100
	ProgressCallback func(status string, progress int)
	// OnStage 每个阶段完成后调用；返回错误会中止流水线
	OnStage func(update StageUpdate) error
}

type stageFunc func(ctx context.Context, st *State) error

// stages 阶段分发表：按 State.Next 查找下一个要执行的阶段
func (e *Engine) stages() map[Stage]stageFunc {
	return map[Stage]stageFunc{
		StageSearch:   e.searchInformation,
		StageAnalyze:  e.analyzeInformation,
		StageGenerate: e.generateReport,
	}
}

// ErrNoReport 流水线结束但没有生成报告
var ErrNoReport = errors.New("pipeline finished without a report")

// Run 执行一次完整的报告生成流程
func (e *Engine) Run(ctx context.Context, req model.ResearchRequest, opts RunOptions) (*model.ReportResult, error) {
	runID := uuid.NewString()
	st := NewState(req)
	st.log = logger.Log.WithFields(logrus.Fields{"run_id": runID})
	st.log.Infof("开始研究主题: %s (depth=%d, language=%s)", st.Topic, st.Depth, st.Language)

	if err := drive(ctx, st, runID, e.stages(), opts); err != nil {
		return nil, err
	}
	if st.Report == nil {
		return nil, ErrNoReport
	}
	st.log.Info("报告生成完成")
	return st.Report, nil
}

// drive 从 st.Next 开始按分发表依次执行阶段，直到 StageDone
func drive(ctx context.Context, st *State, runID string, stages map[Stage]stageFunc, opts RunOptions) error {
	progress := func(status string, p int) {
		if opts.ProgressCallback != nil {
			opts.ProgressCallback(status, p)
		}
	}
	progress("starting", 0)

	completed := 0
	for st.Next != StageDone {
		stage := st.Next
		run, ok := stages[stage]
		if !ok {
			return fmt.Errorf("unknown stage %q", stage)
		}

		started := time.Now()
		if err := run(ctx, st); err != nil {
			st.log.Errorf("阶段 [%s] 失败: %v", stage, err)
			return fmt.Errorf("%s stage: %w", stage, err)
		}
		if st.Next == stage {
			return fmt.Errorf("stage %q did not advance", stage)
		}
		completed++
		st.log.Infof("阶段 [%s] 完成，耗时 %v，下一阶段: %s", stage, time.Since(started).Round(time.Millisecond), st.Next)
		progress(fmt.Sprintf("completed stage: %s", stage), min(100, completed*100/len(stages)))

		if opts.OnStage != nil {
			if err := opts.OnStage(st.update(runID, stage)); err != nil {
				return fmt.Errorf("stage observer: %w", err)
			}
		}
	}
	return nil
}
