package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/research_report/internal/conf"
	"github.com/iWorld-y/research_report/internal/engine"
	"github.com/iWorld-y/research_report/internal/logger"
	"github.com/iWorld-y/research_report/internal/server"
	"github.com/iWorld-y/research_report/internal/service"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "research_report"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}

// initApp 手动组装依赖：引擎 -> 服务 -> HTTP Server
func initApp(bc *conf.Bootstrap, kl log.Logger) (*kratos.App, error) {
	eng, err := engine.NewEngine(context.Background(), bc.Research)
	if err != nil {
		return nil, err
	}
	svc := service.NewResearchService(eng, bc.Research.Research, bc.Research.Stream, kl)
	hs := server.NewHTTPServer(bc.Server, svc, kl)
	return newApp(kl, hs), nil
}

func main() {
	flag.Parse()
	// 初始化日志记录器，包含时间戳、调用者信息、服务ID等上下文
	kl := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	helper := log.NewHelper(kl)

	// 配置文件中的 ${ENV} 占位符由环境变量源解析
	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
			env.NewSource(),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		helper.Fatalf("load config: %v", err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		helper.Fatalf("scan config: %v", err)
	}
	if bc.Server == nil {
		bc.Server = &conf.Server{}
	}
	if bc.Research == nil {
		helper.Fatal("config: research section is missing")
	}
	bc.Research.SetDefaults()
	if err := bc.Research.Validate(); err != nil {
		helper.Fatalf("invalid config: %v", err)
	}

	// 流水线日志
	if err := logger.InitLogger(bc.Research.Log.Level, bc.Research.Log.File); err != nil {
		helper.Fatalf("init logger: %v", err)
	}

	app, err := initApp(&bc, kl)
	if err != nil {
		helper.Fatalf("init app: %v", err)
	}

	if err := app.Run(); err != nil {
		helper.Fatalf("app run: %v", err)
	}
}
