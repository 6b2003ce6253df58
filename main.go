package main

import "budget/cmd"

// @title Budget API
// @version 1.0
// @description 个人预算 API：月度预算、消费记录、低预算提醒和票据识别
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name budget_session

func main() {
	cmd.Execute()
}
