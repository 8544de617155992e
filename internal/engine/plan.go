package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iWorld-y/research_report/internal/llm"
	"github.com/iWorld-y/research_report/internal/model"
)

// ErrEmptyPlan 计划中没有任何可用的检索词
var ErrEmptyPlan = errors.New("plan has no search keywords")

// fallbackAuthoritySources 规划失败时使用的默认权威来源
var fallbackAuthoritySources = []string{"研究报告", "行业数据", "专业分析"}

// ParsePlan 解析规划 Prompt 的输出，允许外层包裹 markdown 代码块
func ParsePlan(raw string) (*model.ResearchPlan, error) {
	clean, err := llm.CleanJSON(raw)
	if err != nil {
		return nil, err
	}

	var plan model.ResearchPlan
	if err := json.Unmarshal([]byte(clean), &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if len(plan.Queries()) == 0 {
		return nil, ErrEmptyPlan
	}
	if plan.KeyQuestions == nil {
		plan.KeyQuestions = []string{}
	}
	if plan.FocusPoints == nil {
		plan.FocusPoints = []string{}
	}
	if plan.AuthoritySources == nil {
		plan.AuthoritySources = []string{}
	}
	return &plan, nil
}

// FallbackPlan 以主题本身作为唯一关键词的最小计划
func FallbackPlan(topic string, focusAreas []string) *model.ResearchPlan {
	focus := []string{"综合分析"}
	if len(focusAreas) > 0 {
		focus = append([]string(nil), focusAreas...)
	}

	keywords := model.NewKeywordTable()
	keywords.Set(topic, model.NewQueryVariants("zh", topic, "en", ""))

	return &model.ResearchPlan{
		KeyQuestions:     []string{topic},
		SearchKeywords:   keywords,
		FocusPoints:      focus,
		AuthoritySources: append([]string(nil), fallbackAuthoritySources...),
	}
}
