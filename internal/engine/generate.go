package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/research_report/internal/markdown"
	"github.com/iWorld-y/research_report/internal/model"
)

// generateReport 撰写报告、提炼结论并整理参考文献
func (e *Engine) generateReport(ctx context.Context, st *State) error {
	if st.Analysis == nil {
		return errors.New("analysis is missing")
	}

	prompt, err := reportPrompt(st)
	if err != nil {
		return err
	}

	st.log.Info("正在撰写研究报告...")
	raw, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	report := markdown.Normalize(raw)

	st.log.Info("正在提炼关键结论...")
	conclusionsRaw, err := e.llm.Complete(ctx, conclusionsPrompt(report, st.Language))
	if err != nil {
		return fmt.Errorf("conclusions: %w", err)
	}

	refs := BuildReferences(st.ResearchData, st.Language)
	highCount := 0
	for _, r := range refs {
		if r.Credibility > model.HighCredibilityThreshold {
			highCount++
		}
	}
	capped := refs
	if len(capped) > MaxReferences {
		capped = capped[:MaxReferences]
	}

	st.Report = &model.ReportResult{
		Topic:            st.Topic,
		ExecutiveSummary: report,
		DetailedAnalysis: model.DetailedAnalysis{
			MarketAnalysis:    st.Analysis.RawAnalysis,
			ValidationResults: st.Analysis.Validation,
			FullReport:        report,
		},
		Conclusions: splitLines(conclusionsRaw),
		References:  capped,
		Metadata: model.ReportMetadata{
			CredibilityAssessment:       st.Analysis.CredibilityAssessment,
			GenerationDate:              e.now().Format(time.RFC3339),
			DataSourcesCount:            len(refs),
			HighCredibilitySourcesCount: highCount,
		},
	}
	st.Next = StageDone
	return nil
}

// splitLines 按行拆分并去掉空行
func splitLines(s string) []string {
	lines := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
