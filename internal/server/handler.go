package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"

	"github.com/iWorld-y/research_report/internal/model"
	"github.com/iWorld-y/research_report/internal/service"
)

type researchHandler struct {
	svc *service.ResearchService
	mw  middleware.Middleware
	log *log.Helper
}

// errorBody 错误响应体，与前端约定为 {"detail": "..."}
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w nethttp.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按 Kratos 错误码写出状态码，非 Kratos 错误按 500 处理
func writeError(w nethttp.ResponseWriter, err error) {
	se := errors.FromError(err)
	writeJSON(w, int(se.Code), errorBody{Detail: se.Message})
}

func methodNotAllowed(w nethttp.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, errors.New(nethttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed"))
}

func decodeRequest(r *nethttp.Request) (model.ResearchRequest, error) {
	var req model.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, service.InvalidRequest("invalid request body: %v", err)
	}
	return req, nil
}

// generateReport POST /api/generate-report
func (h *researchHandler) generateReport(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		methodNotAllowed(w, nethttp.MethodPost)
		return
	}
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	call := h.mw(func(ctx context.Context, in any) (any, error) {
		return h.svc.GenerateReport(ctx, in.(model.ResearchRequest))
	})
	out, err := call(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, nethttp.StatusOK, out)
}

// generateReportStream POST /api/generate-report-stream
func (h *researchHandler) generateReportStream(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodPost {
		methodNotAllowed(w, nethttp.MethodPost)
		return
	}
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	rc := nethttp.NewResponseController(w)
	started := false
	emit := func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(nethttp.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil && !stderrors.Is(err, nethttp.ErrNotSupported) {
			return err
		}
		return nil
	}

	call := h.mw(func(ctx context.Context, in any) (any, error) {
		return nil, h.svc.StreamReport(ctx, in.(model.ResearchRequest), emit)
	})
	if _, err := call(r.Context(), req); err != nil {
		if started {
			h.log.WithContext(r.Context()).Errorf("stream aborted: %v", err)
			return
		}
		writeError(w, err)
	}
}

// healthz GET /healthz
func healthz(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet && r.Method != nethttp.MethodHead {
		methodNotAllowed(w, nethttp.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}
