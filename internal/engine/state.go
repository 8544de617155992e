package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/iWorld-y/research_report/internal/logger"
	"github.com/iWorld-y/research_report/internal/model"
)

// Stage 流水线阶段标签
type Stage string

const (
	StageSearch   Stage = "search"
	StageAnalyze  Stage = "analyze"
	StageGenerate Stage = "generate"
	StageDone     Stage = "done"
)

// State 贯穿整个流水线的状态。
// Topic/Depth/Language/FocusAreas 创建后不再修改；
// Plan 与 ResearchData 归搜索阶段，Analysis 归分析阶段，Report 归报告阶段，
// 每个阶段只写自己的字段，不回滚。
type State struct {
	Topic      string
	Depth      int
	Language   string
	FocusAreas []string

	Plan         *model.ResearchPlan
	ResearchData []model.SearchResult
	Analysis     *model.AnalysisResult
	Report       *model.ReportResult

	Next Stage

	log *logrus.Entry
}

// NewState 由请求创建初始状态，调用方应先对请求做 Normalize/Validate
func NewState(req model.ResearchRequest) *State {
	focus := make([]string, len(req.FocusAreas))
	copy(focus, req.FocusAreas)
	return &State{
		Topic:      req.Topic,
		Depth:      req.Depth,
		Language:   req.Language,
		FocusAreas: focus,
		Next:       StageSearch,
		log:        logrus.NewEntry(logger.Log),
	}
}

// StageUpdate 某个阶段完成后产出的数据，流式接口逐块输出
type StageUpdate struct {
	RunID        string                `json:"run_id"`
	Stage        Stage                 `json:"stage"`
	Next         Stage                 `json:"next"`
	Plan         *model.ResearchPlan   `json:"plan,omitempty"`
	ResearchData []model.SearchResult  `json:"research_data,omitempty"`
	Analysis     *model.AnalysisResult `json:"analysis,omitempty"`
	Report       *model.ReportResult   `json:"report,omitempty"`
}

// update 生成 stage 刚完成时的快照，只携带该阶段写入的字段
func (s *State) update(runID string, stage Stage) StageUpdate {
	u := StageUpdate{RunID: runID, Stage: stage, Next: s.Next}
	switch stage {
	case StageSearch:
		u.Plan = s.Plan
		u.ResearchData = s.ResearchData
	case StageAnalyze:
		u.Analysis = s.Analysis
	case StageGenerate:
		u.Report = s.Report
	}
	return u
}
