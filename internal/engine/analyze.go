package engine

import (
	"context"
	"fmt"

	"github.com/iWorld-y/research_report/internal/model"
)

// 交叉验证结论由 Prompt 交给模型完成，程序侧不做数据校验，状态固定为 verified
const validationStatusVerified = "verified"

// analyzeInformation 深度分析检索结果并做交叉验证
func (e *Engine) analyzeInformation(ctx context.Context, st *State) error {
	prompt, err := analysisPrompt(st)
	if err != nil {
		return err
	}

	st.log.Infof("正在分析 %d 条研究数据...", len(st.ResearchData))
	analysis, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	st.log.Info("正在交叉验证分析结果...")
	validation, err := e.llm.Complete(ctx, validationPrompt(analysis, st.Language))
	if err != nil {
		return fmt.Errorf("validation: %w", err)
	}

	sources := append([]model.SearchResult{}, st.ResearchData...)
	st.Analysis = &model.AnalysisResult{
		Topic:                 st.Topic,
		RawAnalysis:           analysis,
		Validation:            validation,
		Sources:               sources,
		CredibilityAssessment: assessCredibility(sources),
	}
	st.Next = StageGenerate
	return nil
}

func assessCredibility(sources []model.SearchResult) model.CredibilityAssessment {
	high := []model.SearchResult{}
	for _, s := range sources {
		if s.CredibilityScore > model.HighCredibilityThreshold {
			high = append(high, s)
		}
	}
	return model.CredibilityAssessment{
		HighCredibilitySources: high,
		DataConsistencyCheck:   true,
		ValidationStatus:       validationStatusVerified,
	}
}
