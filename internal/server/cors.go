package server

import (
	nethttp "net/http"

	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/handlers"
)

// corsHeaders 预检请求允许的请求头
var corsHeaders = []string{"Content-Type", "Authorization", "X-Requested-With"}

// CORS 跨域过滤器：仅放行 origins 中的来源并允许携带凭证，预检请求返回 204
func CORS(origins []string) http.FilterFunc {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowCredentials(),
		handlers.AllowedMethods([]string{nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodOptions}),
		handlers.AllowedHeaders(corsHeaders),
		handlers.MaxAge(600),
		handlers.OptionStatusCode(nethttp.StatusNoContent),
	)
}
