// @title Quiz 平台后端 API
// @version 1.0
// @description 题库、限时答题、作答历史与编程挑战评审服务。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"log"

	"quiz_edu_backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
