package engine

import (
	"sort"
	"strings"

	"github.com/iWorld-y/research_report/internal/model"
)

// MaxReferences 报告中保留的参考文献上限
const MaxReferences = 15

// referenceLabels 按语言区分的来源类型标签：[高可信度, 其它]
var referenceLabels = map[string][2]string{
	"zh": {"权威机构报告", "行业分析文章"},
	"en": {"authoritative-institution report", "industry analysis article"},
}

func referenceLabel(score float64, language string) string {
	labels := referenceLabels["en"]
	if strings.HasPrefix(strings.ToLower(language), "zh") {
		labels = referenceLabels["zh"]
	}
	if score > model.HighCredibilityThreshold {
		return labels[0]
	}
	return labels[1]
}

// BuildReferences 按可信度降序整理参考文献：要求标题与 URL 齐全且为 http(s) 链接。
// 返回未截断的完整列表，截断由调用方决定。
func BuildReferences(data []model.SearchResult, language string) []model.Reference {
	sorted := append([]model.SearchResult(nil), data...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CredibilityScore > sorted[j].CredibilityScore
	})

	refs := []model.Reference{}
	for _, s := range sorted {
		if s.Title == "" || s.URL == "" {
			continue
		}
		if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
			continue
		}
		refs = append(refs, model.Reference{
			Title:         s.Title,
			URL:           s.URL,
			Credibility:   s.CredibilityScore,
			Type:          referenceLabel(s.CredibilityScore, language),
			PublishedDate: s.PublishedDate,
		})
	}
	return refs
}
