package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iWorld-y/research_report/internal/config"
	"github.com/iWorld-y/research_report/internal/engine"
	"github.com/iWorld-y/research_report/internal/logger"
	"github.com/iWorld-y/research_report/internal/model"
	"github.com/iWorld-y/research_report/internal/render"
)

func main() {
	var (
		confPath = flag.String("conf", "configs/research.yaml", "config path")
		topic    = flag.String("topic", "", "research topic")
		depth    = flag.Int("depth", 0, "research depth (default from config)")
		focus    = flag.String("focus", "", "comma separated focus areas")
		lang     = flag.String("lang", "", "report language (default from config)")
		outDir   = flag.String("out", "", "output directory (default from config)")
	)
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置错误: %v", err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}

	req := model.ResearchRequest{
		Topic:      *topic,
		Depth:      cfg.Research.Depth,
		Language:   cfg.Research.Language,
		FocusAreas: cfg.Research.FocusAreas,
	}
	if *depth != 0 {
		req.Depth = *depth
	}
	if *lang != "" {
		req.Language = *lang
	}
	if *focus != "" {
		req.FocusAreas = splitList(*focus)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		logger.Log.Fatalf("请求参数错误: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 初始化引擎
	eng, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("引擎初始化失败: %v", err)
	}

	// 4. 生成报告
	rep, err := eng.Run(ctx, req, engine.RunOptions{
		ProgressCallback: func(status string, progress int) {
			logger.Log.Infof("[%3d%%] %s", progress, status)
		},
	})
	if err != nil {
		logger.Log.Fatalf("报告生成失败: %v", err)
	}

	// 5. 输出文件
	dir := cfg.Output.Dir
	if *outDir != "" {
		dir = *outDir
	}
	if dir == "" {
		dir = "output"
	}
	mdPath, htmlPath, err := render.WriteFiles(dir, rep)
	if err != nil {
		logger.Log.Fatalf("写入报告失败: %v", err)
	}

	logger.Log.Infof("✅ 研究报告生成完毕: %s, %s", mdPath, htmlPath)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
