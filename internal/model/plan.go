package model

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// QueryVariants 语言 -> 检索词，例如 {"zh": "固态电池", "en": "solid-state battery"}
type QueryVariants = orderedmap.OrderedMap[string, string]

// KeywordTable 关键词 -> 多语言检索词，保持 LLM 输出中的顺序
type KeywordTable = orderedmap.OrderedMap[string, *QueryVariants]

// KeywordQuery 一次具体的搜索查询
type KeywordQuery struct {
	Keyword  string
	Language string
	Query    string
}

// NewKeywordTable 创建空的关键词表
func NewKeywordTable() *KeywordTable {
	return orderedmap.New[string, *QueryVariants]()
}

// NewQueryVariants 由 lang, query 成对参数构造多语言检索词
func NewQueryVariants(pairs ...string) *QueryVariants {
	v := orderedmap.New[string, string]()
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}

// Queries 按计划顺序展开所有非空检索词
func (p *ResearchPlan) Queries() []KeywordQuery {
	if p == nil || p.SearchKeywords == nil {
		return nil
	}
	var out []KeywordQuery
	for kw := p.SearchKeywords.Oldest(); kw != nil; kw = kw.Next() {
		if kw.Value == nil {
			continue
		}
		for v := kw.Value.Oldest(); v != nil; v = v.Next() {
			if v.Value == "" {
				continue
			}
			out = append(out, KeywordQuery{Keyword: kw.Key, Language: v.Key, Query: v.Value})
		}
	}
	return out
}
