package model

import (
	"errors"
	"fmt"
	"strings"
)

// ResearchRequest 研究报告生成请求
type ResearchRequest struct {
	Topic      string   `json:"topic"`
	Depth      int      `json:"depth"`       // 研究深度，影响搜索结果数量
	Language   string   `json:"language"`    // 语言，默认 zh
	FocusAreas []string `json:"focus_areas"` // 关注领域
}

// Normalize 填充默认值：depth=3，language=zh，focus_areas 为空列表
func (r *ResearchRequest) Normalize() {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Depth == 0 {
		r.Depth = 3
	}
	if r.Language == "" {
		r.Language = "zh"
	}
	if r.FocusAreas == nil {
		r.FocusAreas = []string{}
	}
}

// MaxDepth depth 上限
const MaxDepth = 10

// Validate 校验请求，应在 Normalize 之后调用
func (r *ResearchRequest) Validate() error {
	if r.Topic == "" {
		return errors.New("topic must not be empty")
	}
	if r.Depth < 1 {
		return errors.New("depth must be a positive integer")
	}
	if r.Depth > MaxDepth {
		return fmt.Errorf("depth must not exceed %d", MaxDepth)
	}
	return nil
}

// SearchResult 单条搜索结果，CredibilityScore 在入库时计算一次
type SearchResult struct {
	URL              string  `json:"url"`
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	PublishedDate    string  `json:"published_date,omitempty"`
	Type             string  `json:"type,omitempty"`
	CredibilityScore float64 `json:"credibility_score"`
}

// ResearchPlan 研究计划（由规划 Prompt 生成）
type ResearchPlan struct {
	KeyQuestions     []string      `json:"key_questions"`
	SearchKeywords   *KeywordTable `json:"search_keywords"`
	FocusPoints      []string      `json:"focus_points"`
	AuthoritySources []string      `json:"authority_sources"`
}

// CredibilityAssessment 可信度评估摘要
type CredibilityAssessment struct {
	HighCredibilitySources []SearchResult `json:"high_credibility_sources"`
	DataConsistencyCheck   bool           `json:"data_consistency_check"`
	ValidationStatus       string         `json:"validation_status"`
}

// AnalysisResult 分析阶段输出
type AnalysisResult struct {
	Topic                 string                `json:"topic"`
	RawAnalysis           string                `json:"raw_analysis"`
	Validation            string                `json:"validation"`
	Sources               []SearchResult        `json:"sources"`
	CredibilityAssessment CredibilityAssessment `json:"credibility_assessment"`
}

// DetailedAnalysis 报告详细分析部分
type DetailedAnalysis struct {
	MarketAnalysis    string `json:"market_analysis"`
	ValidationResults string `json:"validation_results"`
	FullReport        string `json:"full_report"`
}

// Reference 参考文献
type Reference struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Credibility   float64 `json:"credibility"`
	Type          string  `json:"type"`
	PublishedDate string  `json:"published_date"`
}

// ReportMetadata 报告元数据
type ReportMetadata struct {
	CredibilityAssessment       CredibilityAssessment `json:"credibility_assessment"`
	GenerationDate              string                `json:"generation_date"`
	DataSourcesCount            int                   `json:"data_sources_count"`
	HighCredibilitySourcesCount int                   `json:"high_credibility_sources_count"`
}

// ReportResult 最终研究报告
type ReportResult struct {
	Topic            string           `json:"topic"`
	ExecutiveSummary string           `json:"executive_summary"`
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
	Conclusions      []string         `json:"conclusions"`
	References       []Reference      `json:"references"`
	Metadata         ReportMetadata   `json:"metadata"`
}

// HighCredibilityThreshold 高可信度分数线（严格大于）
const HighCredibilityThreshold = 7.0
