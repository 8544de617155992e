package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_report/internal/markdown"
	"github.com/iWorld-y/research_report/internal/model"
	"github.com/iWorld-y/research_report/internal/search"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// 各类 Prompt 的识别标记
const (
	markPlan        = "拆解研究任务"
	markValidation  = "做数据交叉验证"
	markAnalysis    = "撰写深度分析"
	markReport      = "撰写一份完整的研究报告"
	markConclusions = "提炼 3-5 条"
)

// scriptedLLM 根据 Prompt 中的标记返回预设文本
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	for _, mark := range []string{markPlan, markValidation, markAnalysis, markReport, markConclusions} {
		if !strings.Contains(prompt, mark) {
			continue
		}
		if err := s.errs[mark]; err != nil {
			return "", err
		}
		return s.replies[mark], nil
	}
	return "", errors.New("unexpected prompt")
}

func (s *scriptedLLM) count(mark string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, mark) {
			n++
		}
	}
	return n
}

// fakeSearcher 按查询词返回结果或错误，未登记的查询返回 fallback
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]search.Result
	errs     map[string]error
	fallback []search.Result
	requests []search.Request
}

func (f *fakeSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, *req)
	if err := f.errs[req.Query]; err != nil {
		return nil, err
	}
	if rs, ok := f.results[req.Query]; ok {
		return &search.Response{Results: rs}, nil
	}
	return &search.Response{Results: f.fallback}, nil
}

func (f *fakeSearcher) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Query)
	}
	return out
}

const cannedReport = `# Solid-state batteries
## 1. 摘要
Market grows **fast** [1].
- cost falls
- density rises
## 2. 研究背景
Background text.`

func cannedLLM(plan string) *scriptedLLM {
	return &scriptedLLM{replies: map[string]string{
		markPlan:        plan,
		markAnalysis:    "analysis text",
		markValidation:  "validation text",
		markReport:      cannedReport,
		markConclusions: "1. Costs fall 40% by 2030\n\n 2. Density doubles by 2028 \n",
	}}
}

func batteryResults() []search.Result {
	return []search.Result{
		{Title: "Automakers bet on solid-state", URL: "https://www.reuters.com/tech/ssb", Content: "c", PublishedDate: "2021-01-01"},
		{Title: "Solid-state battery study", URL: "https://www.nature.com/articles/ssb", Content: "a", PublishedDate: "2025-03-01"},
		{Title: "Battery market outlook", URL: "https://www.mckinsey.com/ssb-outlook", Content: "b", PublishedDate: "2023-10-01"},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	llm := cannedLLM("```json\n" + `{
		"key_questions": ["How fast will costs fall?"],
		"search_keywords": {"solid-state battery": {"zh": "固态电池", "en": "solid-state battery"}},
		"focus_points": ["cost"],
		"authority_sources": ["IEA"]
	}` + "\n```")
	searcher := &fakeSearcher{fallback: batteryResults()}
	e := New(llm, searcher, WithClock(func() time.Time { return fixedNow }))

	req := model.ResearchRequest{Topic: "solid-state batteries", Depth: 1}
	req.Normalize()

	var progress []int
	var stages []Stage
	rep, err := e.Run(context.Background(), req, RunOptions{
		ProgressCallback: func(_ string, p int) { progress = append(progress, p) },
		OnStage: func(u StageUpdate) error {
			stages = append(stages, u.Stage)
			assert.NotEmpty(t, u.RunID)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageSearch, StageAnalyze, StageGenerate}, stages)
	assert.Equal(t, []int{0, 33, 66, 100}, progress)

	// 两个语言版本各检索一次，参数固定
	assert.Equal(t, []string{"固态电池", "solid-state battery"}, searcher.queries())
	for _, r := range searcher.requests {
		assert.Equal(t, 5, r.MaxResults)
		assert.Equal(t, "advanced", r.SearchDepth)
		assert.Contains(t, r.IncludeDomains, "nature.com")
		assert.Contains(t, r.ExcludeDomains, "youtube.com")
	}

	require.Len(t, rep.References, 3)
	assert.Equal(t, "https://www.nature.com/articles/ssb", rep.References[0].URL)
	assert.Equal(t, "https://www.mckinsey.com/ssb-outlook", rep.References[1].URL)
	assert.Equal(t, "https://www.reuters.com/tech/ssb", rep.References[2].URL)
	assert.Equal(t, 15.0, rep.References[0].Credibility)
	assert.Equal(t, 10.0, rep.References[1].Credibility)
	assert.Equal(t, 7.0, rep.References[2].Credibility)
	assert.Equal(t, "权威机构报告", rep.References[0].Type)
	assert.Equal(t, "行业分析文章", rep.References[2].Type)

	assert.Equal(t, rep.ExecutiveSummary, markdown.Normalize(rep.ExecutiveSummary))
	assert.Equal(t, rep.ExecutiveSummary, rep.DetailedAnalysis.FullReport)
	assert.Equal(t, "analysis text", rep.DetailedAnalysis.MarketAnalysis)
	assert.Equal(t, "validation text", rep.DetailedAnalysis.ValidationResults)
	assert.Equal(t, []string{"1. Costs fall 40% by 2030", "2. Density doubles by 2028"}, rep.Conclusions)

	assert.Equal(t, 3, rep.Metadata.DataSourcesCount)
	assert.Equal(t, 2, rep.Metadata.HighCredibilitySourcesCount)
	assert.Equal(t, "2025-06-01T12:00:00Z", rep.Metadata.GenerationDate)
	assert.True(t, rep.Metadata.CredibilityAssessment.DataConsistencyCheck)
	assert.Equal(t, "verified", rep.Metadata.CredibilityAssessment.ValidationStatus)
	assert.Len(t, rep.Metadata.CredibilityAssessment.HighCredibilitySources, 2)

	assert.Equal(t, 1, llm.count(markPlan))
	assert.Equal(t, 1, llm.count(markConclusions))
}

func TestRun_FailingQueryIsSkipped(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {
		"k1": {"zh": "q1"},
		"k2": {"zh": "q2"},
		"k3": {"zh": "q3"}
	}}`)
	searcher := &fakeSearcher{
		results: map[string][]search.Result{
			"q1": {{Title: "one", URL: "https://example.com/1"}},
			"q2": {{Title: "two", URL: "https://example.com/2"}},
			"q3": {{Title: "three", URL: "https://example.com/3"}},
		},
		errs: map[string]error{"q2": errors.New("search backend down")},
	}
	e := New(llm, searcher, WithClock(func() time.Time { return fixedNow }), WithMaxConcurrentSearches(3))

	var data []model.SearchResult
	_, err := e.Run(context.Background(), model.ResearchRequest{Topic: "t", Depth: 1, Language: "zh"}, RunOptions{
		OnStage: func(u StageUpdate) error {
			if u.Stage == StageSearch {
				data = u.ResearchData
			}
			return nil
		},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"q1", "q2", "q3"}, searcher.queries())
	urls := make([]string, 0, len(data))
	for _, r := range data {
		urls = append(urls, r.URL)
	}
	// 同分时保持查询顺序
	assert.Equal(t, []string{"https://example.com/1", "https://example.com/3"}, urls)
}

func TestRun_MalformedPlanFallsBack(t *testing.T) {
	llm := cannedLLM("Sure! Here is my plan: search for things.")
	searcher := &fakeSearcher{fallback: batteryResults()}
	e := New(llm, searcher, WithClock(func() time.Time { return fixedNow }))

	var plan *model.ResearchPlan
	rep, err := e.Run(context.Background(), model.ResearchRequest{Topic: "solid-state batteries", Depth: 1, Language: "zh"}, RunOptions{
		OnStage: func(u StageUpdate) error {
			if u.Stage == StageSearch {
				plan = u.Plan
			}
			return nil
		},
	})
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.Equal(t, []string{"solid-state batteries"}, searcher.queries())
	require.NotNil(t, plan)
	assert.Equal(t, []string{"solid-state batteries"}, plan.KeyQuestions)
	assert.Equal(t, []string{"综合分析"}, plan.FocusPoints)
	assert.Equal(t, []string{"研究报告", "行业数据", "专业分析"}, plan.AuthoritySources)
}

func TestRun_ModelFailurePropagates(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	llm.errs = map[string]error{markAnalysis: errors.New("model unavailable")}
	e := New(llm, &fakeSearcher{})

	_, err := e.Run(context.Background(), model.ResearchRequest{Topic: "t", Depth: 1}, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyze stage")
	assert.Contains(t, err.Error(), "model unavailable")
	assert.Equal(t, 0, llm.count(markReport))
}

func TestRun_PlanningFailurePropagates(t *testing.T) {
	llm := cannedLLM("")
	llm.errs = map[string]error{markPlan: errors.New("quota exhausted")}
	searcher := &fakeSearcher{}

	_, err := New(llm, searcher).Run(context.Background(), model.ResearchRequest{Topic: "t", Depth: 1}, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search stage")
	assert.Empty(t, searcher.queries())
}

func TestRun_ObserverAborts(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	stop := errors.New("client went away")
	e := New(llm, &fakeSearcher{})

	_, err := e.Run(context.Background(), model.ResearchRequest{Topic: "t", Depth: 1}, RunOptions{
		OnStage: func(StageUpdate) error { return stop },
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 0, llm.count(markAnalysis))
}

func TestRun_EmptySearchStillProducesReport(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	rep, err := New(llm, &fakeSearcher{}).Run(context.Background(), model.ResearchRequest{Topic: "t", Depth: 2}, RunOptions{})
	require.NoError(t, err)
	assert.NotNil(t, rep.References)
	assert.Empty(t, rep.References)
	assert.Equal(t, 0, rep.Metadata.DataSourcesCount)
}

func TestSearch_TruncatesToDepthTimesSeven(t *testing.T) {
	var many []search.Result
	for i := 0; i < 20; i++ {
		many = append(many, search.Result{Title: fmt.Sprintf("r%d", i), URL: fmt.Sprintf("https://example.com/%d", i)})
	}
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	e := New(llm, &fakeSearcher{fallback: many})

	st := NewState(model.ResearchRequest{Topic: "t", Depth: 2})
	require.NoError(t, e.searchInformation(context.Background(), st))
	assert.Len(t, st.ResearchData, 14)
	assert.Equal(t, StageAnalyze, st.Next)
}

type fakeFetcher struct {
	mu   sync.Mutex
	text string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return f.text, f.err
}

func TestSearch_HugeDepthKeepsAllResults(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	searcher := &fakeSearcher{fallback: []search.Result{
		{Title: "a", URL: "https://example.com/a"},
		{Title: "b", URL: "https://example.com/b"},
	}}
	e := New(llm, searcher)

	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1 << 62})
	require.NotPanics(t, func() {
		require.NoError(t, e.searchInformation(context.Background(), st))
	})
	assert.Len(t, st.ResearchData, 2)
}

func TestSearch_FetchesOnlyKeptResults(t *testing.T) {
	var same []search.Result
	for i := 0; i < 10; i++ {
		same = append(same, search.Result{Title: fmt.Sprintf("r%d", i), URL: fmt.Sprintf("https://example.com/%d", i), Content: "tiny"})
	}
	llm := cannedLLM(`{"search_keywords": {"k": {"zh": "查询", "en": "query"}}}`)
	searcher := &fakeSearcher{fallback: same}
	fetcher := &fakeFetcher{text: "全文内容全文内容全文内容"}
	e := New(llm, searcher, WithFetcher(fetcher, 10, 100), WithMaxConcurrentSearches(4))

	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1})
	require.NoError(t, e.searchInformation(context.Background(), st))

	assert.Len(t, searcher.queries(), 2)
	require.Len(t, st.ResearchData, 7)
	assert.Len(t, fetcher.urls, 7)

	kept := map[string]bool{}
	for _, r := range st.ResearchData {
		kept[r.URL] = true
		assert.Equal(t, "全文内容全文内容全文内容", r.Content)
	}
	for _, u := range fetcher.urls {
		assert.True(t, kept[u], u)
	}
}

func TestSearch_EnrichesShortSnippets(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	searcher := &fakeSearcher{fallback: []search.Result{
		{Title: "short", URL: "https://example.com/short", Content: "tiny"},
		{Title: "long", URL: "https://example.com/long", Content: "long enough snippet"},
	}}
	fetcher := &fakeFetcher{text: "全文内容全文内容全文内容全文内容"}
	e := New(llm, searcher, WithFetcher(fetcher, 10, 8))

	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1})
	require.NoError(t, e.searchInformation(context.Background(), st))

	assert.Equal(t, []string{"https://example.com/short"}, fetcher.urls)
	byURL := map[string]string{}
	for _, r := range st.ResearchData {
		byURL[r.URL] = r.Content
	}
	assert.Equal(t, "全文内容全文内容", byURL["https://example.com/short"])
	assert.Equal(t, "long enough snippet", byURL["https://example.com/long"])
}

func TestSearch_FetchFailureKeepsSnippet(t *testing.T) {
	llm := cannedLLM(`{"search_keywords": {"k": {"en": "q"}}}`)
	searcher := &fakeSearcher{fallback: []search.Result{{Title: "short", URL: "https://example.com/s", Content: "tiny"}}}
	e := New(llm, searcher, WithFetcher(&fakeFetcher{err: errors.New("403")}, 100, 1000))

	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1})
	require.NoError(t, e.searchInformation(context.Background(), st))
	require.Len(t, st.ResearchData, 1)
	assert.Equal(t, "tiny", st.ResearchData[0].Content)
}

func TestDrive_UnknownStage(t *testing.T) {
	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1})
	stages := map[Stage]stageFunc{
		StageSearch: func(context.Context, *State) error {
			st.Next = "review"
			return nil
		},
	}
	err := drive(context.Background(), st, "run", stages, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown stage "review"`)
}

func TestDrive_StageMustAdvance(t *testing.T) {
	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1})
	stages := map[Stage]stageFunc{
		StageSearch: func(context.Context, *State) error { return nil },
	}
	err := drive(context.Background(), st, "run", stages, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not advance")
}

func TestStateUpdate_CarriesOnlyStageFields(t *testing.T) {
	st := NewState(model.ResearchRequest{Topic: "t", Depth: 1})
	st.Plan = FallbackPlan("t", nil)
	st.ResearchData = []model.SearchResult{{URL: "https://a"}}
	st.Analysis = &model.AnalysisResult{Topic: "t"}
	st.Next = StageGenerate

	u := st.update("run", StageAnalyze)
	assert.Equal(t, StageAnalyze, u.Stage)
	assert.Equal(t, StageGenerate, u.Next)
	assert.NotNil(t, u.Analysis)
	assert.Nil(t, u.Plan)
	assert.Nil(t, u.ResearchData)
	assert.Nil(t, u.Report)
}

func TestPrompts_LanguageHint(t *testing.T) {
	zh := NewState(model.ResearchRequest{Topic: "固态电池", Depth: 1, Language: "zh"})
	en := NewState(model.ResearchRequest{Topic: "solid-state", Depth: 1, Language: "en", FocusAreas: []string{"cost", "safety"}})

	assert.NotContains(t, planningPrompt(zh), "语言代码")
	assert.Contains(t, planningPrompt(zh), "全面分析")

	p := planningPrompt(en)
	assert.Contains(t, p, "语言代码 en")
	assert.Contains(t, p, "cost, safety")

	en.ResearchData = []model.SearchResult{{URL: "https://a", Title: "<b>&"}}
	ap, err := analysisPrompt(en)
	require.NoError(t, err)
	assert.Contains(t, ap, "cost、safety")
	assert.Contains(t, ap, `"title":"<b>&"`)
}
