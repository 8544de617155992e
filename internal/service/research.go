package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_report/internal/config"
	"github.com/iWorld-y/research_report/internal/engine"
	"github.com/iWorld-y/research_report/internal/model"
)

// 错误原因
const (
	ReasonInvalidRequest = "INVALID_REQUEST"
	ReasonWorkflowFailed = "WORKFLOW_FAILED"
	ReasonInternal       = "INTERNAL_ERROR"
)

// ErrorPrefix 流式输出开始后，错误以此前缀写入最后一个数据块
const ErrorPrefix = "错误: "

// Runner 执行一次报告生成流程
type Runner interface {
	Run(ctx context.Context, req model.ResearchRequest, opts engine.RunOptions) (*model.ReportResult, error)
}

// ResearchService 研究报告服务
type ResearchService struct {
	runner     Runner
	defaults   config.ResearchConfig
	chunkDelay time.Duration
	label      string
	log        *log.Helper
}

// NewResearchService 创建研究报告服务，请求未指定的 depth/language/focus_areas 取自 rc
func NewResearchService(runner Runner, rc config.ResearchConfig, c config.StreamConfig, logger log.Logger) *ResearchService {
	label := c.Label
	if label == "" {
		label = config.DefaultStreamLabel
	}
	return &ResearchService{
		runner:     runner,
		defaults:   rc,
		chunkDelay: c.ChunkDelay.Std(),
		label:      label,
		log:        log.NewHelper(logger),
	}
}

// InvalidRequest 请求体无法解析或校验失败
func InvalidRequest(format string, args ...any) *errors.Error {
	return errors.New(422, ReasonInvalidRequest, fmt.Sprintf(format, args...))
}

func (s *ResearchService) prepare(req *model.ResearchRequest) error {
	if req.Depth == 0 {
		req.Depth = s.defaults.Depth
	}
	if req.Language == "" {
		req.Language = s.defaults.Language
	}
	if req.FocusAreas == nil && len(s.defaults.FocusAreas) > 0 {
		req.FocusAreas = append([]string(nil), s.defaults.FocusAreas...)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return InvalidRequest("%v", err)
	}
	return nil
}

// GenerateReport 同步生成完整报告
func (s *ResearchService) GenerateReport(ctx context.Context, req model.ResearchRequest) (rep *model.ReportResult, err error) {
	if err := s.prepare(&req); err != nil {
		return nil, err
	}
	defer s.recoverInto(&err)

	s.log.WithContext(ctx).Infof("Starting research for topic: %s", req.Topic)
	rep, err = s.runner.Run(ctx, req, engine.RunOptions{})
	if err != nil {
		s.log.WithContext(ctx).Errorf("Workflow error: %v", err)
		return nil, errors.InternalServer(ReasonWorkflowFailed, "Workflow execution failed: "+err.Error())
	}
	s.log.WithContext(ctx).Info("Workflow completed successfully")
	return rep, nil
}

// StreamReport 每完成一个阶段，通过 emit 输出一个数据块。
// 尚未输出任何数据块时返回错误，由调用方按普通错误响应处理；
// 已开始输出后，错误作为最后一个数据块写出，返回 nil。
func (s *ResearchService) StreamReport(ctx context.Context, req model.ResearchRequest, emit func(chunk string) error) (err error) {
	if err := s.prepare(&req); err != nil {
		return err
	}

	started := false
	defer func() {
		if err == nil || !started {
			return
		}
		if werr := emit(ErrorPrefix + errors.FromError(err).Message + "\n"); werr != nil {
			s.log.WithContext(ctx).Warnf("write error chunk: %v", werr)
		}
		err = nil
	}()
	defer s.recoverInto(&err)

	s.log.WithContext(ctx).Infof("Starting streamed research for topic: %s", req.Topic)
	_, err = s.runner.Run(ctx, req, engine.RunOptions{
		OnStage: func(u engine.StageUpdate) error {
			payload, err := json.Marshal(u)
			if err != nil {
				return err
			}
			started = true
			if err := emit(s.label + string(payload) + "\n"); err != nil {
				return err
			}
			return sleepContext(ctx, s.chunkDelay)
		},
	})
	if err != nil {
		s.log.WithContext(ctx).Errorf("Workflow error: %v", err)
		return errors.InternalServer(ReasonWorkflowFailed, "Workflow execution failed: "+err.Error())
	}
	return nil
}

// recoverInto 将流程中的 panic 转换为 INTERNAL_ERROR
func (s *ResearchService) recoverInto(err *error) {
	if r := recover(); r != nil {
		s.log.Errorf("Unexpected error: %v", r)
		*err = errors.InternalServer(ReasonInternal, fmt.Sprintf("An error occurred: %v", r))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
