// Package markdown 规范化 LLM 生成的 Markdown 文本的空行。
package markdown

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	headingRe     = regexp.MustCompile(`^#{1,6}\s`)
	bulletRe      = regexp.MustCompile(`^\s*[-*+]\s`)
	orderedItemRe = regexp.MustCompile(`^\s*\d+\.\s`)
)

// Normalize 逐行整理 Markdown：
//   - 标题前后各保留一个空行（文档开头的标题前不加）
//   - 列表项原样输出，不强制加空行
//   - 连续空行折叠为一个
//   - 段落之间插入空行
//
// 输出以空行结尾；对已规范化的文本再次调用结果不变。
func Normalize(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+len(lines)/2)
	prevHeading := false
	prevEmpty := true

	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)

		switch {
		case headingRe.MatchString(line):
			if !prevEmpty {
				out = append(out, "")
			}
			out = append(out, line, "")
			prevHeading, prevEmpty = true, true

		case bulletRe.MatchString(line) || orderedItemRe.MatchString(line):
			out = append(out, line)
			prevHeading, prevEmpty = false, false

		case strings.TrimSpace(line) == "":
			if !prevEmpty {
				out = append(out, "")
			}
			prevHeading, prevEmpty = false, true

		default:
			// 标题后已带空行
			if !prevHeading && !prevEmpty {
				out = append(out, "")
			}
			out = append(out, line)
			prevHeading, prevEmpty = false, false
		}
	}

	if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}
