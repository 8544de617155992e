// Package render 将研究报告输出为 Markdown 与 HTML 文件。
package render

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iWorld-y/research_report/internal/model"
)

const (
	MarkdownFile = "report.md"
	HTMLFile     = "index.html"
)

// Markdown 报告正文加参考文献列表
func Markdown(rep *model.ReportResult) string {
	var sb strings.Builder
	sb.WriteString(rep.ExecutiveSummary)
	if len(rep.References) == 0 {
		return sb.String()
	}

	if !strings.HasSuffix(rep.ExecutiveSummary, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n## 参考文献\n\n")
	for i, ref := range rep.References {
		fmt.Fprintf(&sb, "%d. [%s](%s)", i+1, ref.Title, ref.URL)
		if date := shortDate(ref.PublishedDate); date != "" {
			fmt.Fprintf(&sb, " (%s)", date)
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func shortDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// htmlData 模板渲染数据
type htmlData struct {
	Report *model.ReportResult
	Date   string
}

var htmlTpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"shortDate": shortDate,
}).Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Report.Topic}} | 研究报告</title>
    <script src="https://cdn.jsdelivr.net/npm/marked/marked.min.js"></script>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 40px; padding: 20px 0; }
        h1 { font-size: 2.2rem; margin: 0 0 10px 0; }
        .meta { color: var(--text-secondary); }
        .card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 30px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.05);
            border: 1px solid var(--border-color);
        }
        .card h2 { margin-top: 0; }
        .conclusions { border-left: 4px solid #22c55e; background: #f0fdf4; }
        .ref-list { padding-left: 20px; font-size: 0.9rem; }
        .ref-list li { margin-bottom: 6px; }
        .ref-list a { color: var(--primary-color); text-decoration: none; }
        .ref-list a:hover { text-decoration: underline; }
        .ref-meta { color: #94a3b8; font-size: 0.8em; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{.Report.Topic}}</h1>
            <div class="meta">{{.Date}} • {{.Report.Metadata.DataSourcesCount}} 个来源 • 高可信度 {{.Report.Metadata.HighCredibilitySourcesCount}} 个</div>
        </header>

        {{if .Report.Conclusions}}
        <div class="card conclusions">
            <h2>关键结论</h2>
            <ul>
                {{range .Report.Conclusions}}
                <li>{{.}}</li>
                {{end}}
            </ul>
        </div>
        {{end}}

        <div class="card">
            <div id="report"></div>
            <div style="display:none" id="raw-report">{{.Report.ExecutiveSummary}}</div>
        </div>

        {{if .Report.References}}
        <div class="card">
            <h2>参考文献</h2>
            <ol class="ref-list">
                {{range .Report.References}}
                <li><a href="{{.URL}}" target="_blank">{{.Title}}</a> <span class="ref-meta">{{.Type}} • {{printf "%.0f" .Credibility}}{{with shortDate .PublishedDate}} • {{.}}{{end}}</span></li>
                {{end}}
            </ol>
        </div>
        {{end}}
    </div>

    <script>
        document.addEventListener('DOMContentLoaded', function() {
            const raw = document.getElementById('raw-report');
            if (raw) document.getElementById('report').innerHTML = marked.parse(raw.textContent);
        });
    </script>
</body>
</html>
`))

// HTML 渲染单页报告，正文 Markdown 由浏览器端 marked.js 解析
func HTML(w io.Writer, rep *model.ReportResult) error {
	date := shortDate(rep.Metadata.GenerationDate)
	return htmlTpl.Execute(w, htmlData{Report: rep, Date: date})
}

// WriteFiles 在 dir 下写入 report.md 与 index.html，返回两个文件路径
func WriteFiles(dir string, rep *model.ReportResult) (mdPath, htmlPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	mdPath = filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(mdPath, []byte(Markdown(rep)), 0644); err != nil {
		return "", "", fmt.Errorf("write markdown: %w", err)
	}

	htmlPath = filepath.Join(dir, HTMLFile)
	f, err := os.Create(htmlPath)
	if err != nil {
		return "", "", fmt.Errorf("create html: %w", err)
	}
	defer f.Close()
	if err := HTML(f, rep); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	return mdPath, htmlPath, nil
}
