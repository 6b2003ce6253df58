package web

import "embed"

// StaticFS 内置前端页面
//
//go:embed test-ai.html
var StaticFS embed.FS
