package credibility

import (
	"sort"

	"github.com/iWorld-y/research_report/internal/model"
)

// Rank 按可信度降序稳定排序并按 URL 去重，重复 URL 保留分数最高（同分时排序前靠前）的一条。
// 没有 URL 的结果会被丢弃。输入切片不会被修改。
func Rank(results []model.SearchResult) []model.SearchResult {
	sorted := make([]model.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CredibilityScore > sorted[j].CredibilityScore
	})

	seen := make(map[string]struct{}, len(sorted))
	unique := make([]model.SearchResult, 0, len(sorted))
	for _, r := range sorted {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}
