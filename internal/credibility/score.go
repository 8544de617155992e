// Package credibility 为搜索结果计算可信度评分并去重排序。
package credibility

import (
	"math"
	"strings"
	"time"

	"github.com/iWorld-y/research_report/internal/model"
)

// DomainWeight 权威域名及其权重
type DomainWeight struct {
	Domain string
	Weight float64
}

// AuthorityDomains 权威域名表，按顺序匹配，命中第一个即停止（不是取最高分）
var AuthorityDomains = []DomainWeight{
	{"nature.com", 10},
	{"science.org", 10},
	{"sciencedirect.com", 9},
	{"ieee.org", 9},
	{"scholar.google.com", 8},
	{"researchgate.net", 8},
	{"mckinsey.com", 8},
	{"gartner.com", 8},
	{"forrester.com", 8},
	{"bloomberg.com", 7},
	{"reuters.com", 7},
	{"ft.com", 7},
	{"wsj.com", 7},
}

// TitleKeywords 标题中出现即加分的研究类关键词
var TitleKeywords = []string{"research", "study", "analysis", "report", "研究", "分析", "报告"}

// Score 计算单条搜索结果的可信度评分，字段缺失或格式错误时对应项记 0 分
func Score(r model.SearchResult, now time.Time) float64 {
	return domainScore(r.URL) + typeScore(r.Type) + titleScore(r.Title) + recencyScore(r.PublishedDate, now)
}

func domainScore(url string) float64 {
	url = strings.ToLower(url)
	for _, d := range AuthorityDomains {
		if strings.Contains(url, d.Domain) {
			return d.Weight
		}
	}
	return 0
}

func typeScore(contentType string) float64 {
	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "pdf"), strings.Contains(contentType, "research"):
		return 3
	case strings.Contains(contentType, "article"):
		return 2
	}
	return 0
}

func titleScore(title string) float64 {
	title = strings.ToLower(title)
	for _, kw := range TitleKeywords {
		if strings.Contains(title, kw) {
			return 2
		}
	}
	return 0
}

// recencyScore 取发布日期前 10 个字符按 YYYY-MM-DD 解析，按年龄加分
func recencyScore(published string, now time.Time) float64 {
	if len(published) < 10 {
		return 0
	}
	date, err := time.ParseInLocation(time.DateOnly, published[:10], now.Location())
	if err != nil {
		return 0
	}

	days := math.Floor(now.Sub(date).Hours() / 24)
	yearsOld := days / 365
	switch {
	case yearsOld <= 1:
		return 3
	case yearsOld <= 2:
		return 2
	case yearsOld <= 3:
		return 1
	}
	return 0
}
