package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iWorld-y/research_report/internal/model"
)

func TestBuildReferences(t *testing.T) {
	data := []model.SearchResult{
		{Title: "low", URL: "https://low.example", CredibilityScore: 2},
		{Title: "", URL: "https://untitled.example", CredibilityScore: 20},
		{Title: "ftp", URL: "ftp://files.example/report.pdf", CredibilityScore: 19},
		{Title: "relative", URL: "/reports/1", CredibilityScore: 18},
		{Title: "high", URL: "http://high.example", CredibilityScore: 12, PublishedDate: "2025-01-01"},
		{Title: "edge", URL: "https://edge.example", CredibilityScore: 7},
	}

	refs := BuildReferences(data, "zh")
	assert.Equal(t, []model.Reference{
		{Title: "high", URL: "http://high.example", Credibility: 12, Type: "权威机构报告", PublishedDate: "2025-01-01"},
		{Title: "edge", URL: "https://edge.example", Credibility: 7, Type: "行业分析文章"},
		{Title: "low", URL: "https://low.example", Credibility: 2, Type: "行业分析文章"},
	}, refs)

	en := BuildReferences(data, "en")
	assert.Equal(t, "authoritative-institution report", en[0].Type)
	assert.Equal(t, "industry analysis article", en[1].Type)
}

func TestBuildReferences_Properties(t *testing.T) {
	var data []model.SearchResult
	for i := 0; i < 40; i++ {
		scheme := "https"
		if i%5 == 0 {
			scheme = "mailto"
		}
		data = append(data, model.SearchResult{
			Title:            fmt.Sprintf("r%d", i),
			URL:              fmt.Sprintf("%s://example.com/%d", scheme, i),
			CredibilityScore: float64((i * 7) % 13),
		})
	}

	refs := BuildReferences(data, "zh")
	if len(refs) > MaxReferences {
		refs = refs[:MaxReferences]
	}
	assert.LessOrEqual(t, len(refs), MaxReferences)
	for i, r := range refs {
		assert.True(t, strings.HasPrefix(r.URL, "http://") || strings.HasPrefix(r.URL, "https://"), r.URL)
		if i > 0 {
			assert.GreaterOrEqual(t, refs[i-1].Credibility, r.Credibility)
		}
	}
}

func TestBuildReferences_Empty(t *testing.T) {
	refs := BuildReferences(nil, "zh")
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}
