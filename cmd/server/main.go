package main

import (
	_ "taskmanager/docs"
	"taskmanager/internal/config"
	"taskmanager/internal/server"

	log "github.com/sirupsen/logrus"
)

// @title           Task Manager API
// @version         1.0
// @description     Personal task management: tasks, manual ordering and statistics.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @schemes http
func main() {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("Server initialization failed: %v", err)
	}

	s.Run()
}
