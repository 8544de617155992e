package conf

import "github.com/iWorld-y/research_report/internal/config"

type Bootstrap struct {
	Server   *Server        `json:"server"`
	Research *config.Config `json:"research"`
}

type Server struct {
	Http *HTTP `json:"http"`
	Cors *CORS `json:"cors"`
}

type HTTP struct {
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"`
}

type CORS struct {
	AllowedOrigins []string `json:"allowed_origins"`
}

// DefaultAllowedOrigins 本地前端开发服务器
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
