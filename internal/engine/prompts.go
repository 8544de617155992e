package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "你是一名严谨的行业研究分析师，擅长市场与技术研究，回答必须基于给定数据。"

const planningPromptTpl = `请为研究主题 '%s' 拆解研究任务并制定研究计划。
关注领域：%s

请给出：
1. 需要深入研究的关键问题（不少于 5 个）
2. 每个问题对应的精准检索关键词（中英文各一份）
3. 需要重点关注的数据指标与技术维度
4. 建议参考的权威机构与数据来源

只输出 JSON，格式如下：
{
    "key_questions": ["问题1", "问题2"],
    "search_keywords": {"keyword1": {"zh": "中文关键词", "en": "English keyword"}},
    "focus_points": ["重点1", "重点2"],
    "authority_sources": ["权威来源1", "权威来源2"]
}
%s`

const analysisPromptTpl = `请基于下列研究数据，为主题 '%s' 撰写深度分析。
重点关注：%s

研究数据（JSON，credibility_score 为来源可信度评分）：
%s

分析需覆盖以下方面：

1. 数据可信度
- 评估各来源的可信度
- 找出高可信度的关键数据点
- 说明数据的时效性与适用范围

2. 市场规模与增长
- 当前市场规模（给出具体数字）
- 增长预测（CAGR）
- 细分市场构成

3. 技术发展趋势
- 核心技术突破
- 技术成熟度
- 创新方向

4. 竞争格局
- 主要参与者及市场份额
- 竞争优势对比
- 商业模式创新

5. 挑战与机遇
- 技术瓶颈
- 市场准入门槛
- 政策因素

6. 投资价值
- 投资热点
- 风险收益评估
- 投资建议

要求：
1. 用具体数据支撑结论（市场规模、增长率、份额等）
2. 引用权威机构的预测与分析
3. 标注数据来源的可信度
4. 对相互矛盾的数据进行交叉验证并给出解释
%s`

const validationPromptTpl = `请对下面的分析结果做数据交叉验证。

分析内容：
%s

验证要点：
1. 数据是否前后一致
2. 关键结论是否可靠
3. 是否存在数据偏差
4. 是否缺少关键数据点

如发现不一致或可靠性问题，请给出修正建议。
%s`

const reportPromptTpl = `请基于以下深度分析撰写一份完整的研究报告，并严格遵守下列 Markdown 规则。

1. 标题
   - 一级标题 "# 标题"、二级标题 "## 标题"、三级标题 "### 标题"
   - 每个标题前后各空一行

2. 段落
   - 段落之间空一行
   - 使用完整的句子
   - 不要出现多余的空行

3. 列表
   - 无序列表以 "- " 开头，列表前空一行
   - 有序列表使用 "1. 2. 3."
   - 列表项之间不空行，列表结束后空一行

4. 强调与引用
   - 重要数据使用**粗体**
   - 关键概念使用*斜体*
   - 引用数据使用 [n] 标注

分析数据（JSON）：
%s

报告结构如下，每一部分都必须有实际内容，不要保留占位说明：

# %s

## 1. 摘要

[研究发现与关键数据点]

## 2. 研究背景

[研究背景、目的与意义]

## 3. 研究方法

### 3.1 数据来源

- 数据采集方法与范围
- 权威来源说明与评估
- 数据可信度分析方法

### 3.2 分析方法

- 研究框架
- 分析工具的选择依据
- 验证方法

## 4. 市场分析

### 4.1 市场规模

- 当前市场规模与增长趋势
- 未来五年 CAGR 预测
- 区域市场分布

### 4.2 竞争格局

- 主要企业市场份额
- 竞争优势
- 商业模式创新

## 5. 技术分析

### 5.1 技术现状

- 核心技术评估
- 技术成熟度
- 关键技术壁垒

### 5.2 发展趋势

- 技术创新方向
- 突破点预测
- 应用场景展望

## 6. 机遇与挑战

### 6.1 市场机遇

- 增长驱动因素
- 潜在市场机会
- 商业模式创新空间

### 6.2 面临挑战

- 技术瓶颈
- 市场风险
- 政策因素

## 7. 投资分析

### 7.1 投资价值

- 重点投资领域
- 预期回报
- 风险评估指标

### 7.2 投资建议

- 优先投资方向
- 进入时机
- 风险规避策略

## 8. 结论和建议

### 8.1 主要结论

1. [基于数据的核心结论]
2. [基于数据的核心结论]
3. [基于数据的核心结论]

### 8.2 发展建议

1. [可执行的建议]
2. [可执行的建议]
3. [可执行的建议]

## 9. 参考文献

[参考文献按可信度排序，来源为权威研究平台]
%s`

const conclusionsPromptTpl = `请从下面的报告中提炼 3-5 条最有价值的关键结论。
每条结论必须：
1. 有具体数据支撑
2. 有明确的时间维度
3. 指出发展方向
4. 突出实际价值

报告内容：
%s

直接列出结论，每条一行，%s。`

// languageHint 非中文请求时要求模型使用请求语言作答
func languageHint(lang string) string {
	if lang == "" || strings.HasPrefix(strings.ToLower(lang), "zh") {
		return ""
	}
	return fmt.Sprintf("\n请使用语言代码 %s 对应的语言输出全部内容。\n", lang)
}

func conclusionLanguage(lang string) string {
	if lang == "" || strings.HasPrefix(strings.ToLower(lang), "zh") {
		return "使用中文"
	}
	return fmt.Sprintf("使用语言代码 %s 对应的语言", lang)
}

func planningPrompt(st *State) string {
	focus := "全面分析"
	if len(st.FocusAreas) > 0 {
		focus = strings.Join(st.FocusAreas, ", ")
	}
	return fmt.Sprintf(planningPromptTpl, st.Topic, focus, languageHint(st.Language))
}

func analysisPrompt(st *State) (string, error) {
	focus := "所有相关领域"
	if len(st.FocusAreas) > 0 {
		focus = strings.Join(st.FocusAreas, "、")
	}
	data, err := toJSON(st.ResearchData)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(analysisPromptTpl, st.Topic, focus, data, languageHint(st.Language)), nil
}

func validationPrompt(analysis, lang string) string {
	return fmt.Sprintf(validationPromptTpl, analysis, languageHint(lang))
}

func reportPrompt(st *State) (string, error) {
	data, err := toJSON(st.Analysis)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(reportPromptTpl, data, st.Topic, languageHint(st.Language)), nil
}

func conclusionsPrompt(report, lang string) string {
	return fmt.Sprintf(conclusionsPromptTpl, report, conclusionLanguage(lang))
}

// toJSON 序列化为 JSON，不转义 HTML 字符与非 ASCII 字符
func toJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal prompt data: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
