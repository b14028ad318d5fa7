package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivlev/attnmap/internal/config"
	"github.com/ivlev/attnmap/internal/mockservice"
	"github.com/ivlev/attnmap/internal/system"
)

func main() {
	configPtr := flag.String("config", "attnmap.yaml", "Config file (only log.mode is used)")
	addrPtr := flag.String("addr", ":8000", "Listen address")
	keyPtr := flag.String("key", "dev-key", "Accepted API key")
	creditsPtr := flag.Int("credits", 100, "Credits reported by /credits")
	statusPtr := flag.Int("status", 0, "Force every /predict/ response to this status (0 - off)")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Config error: %v", err)
	}
	if err := system.InitLogger(cfg.Log.Mode); err != nil {
		log.Fatalf("[-] Logger error: %v", err)
	}
	defer system.Sync()

	if cfg.Log.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := mockservice.New(mockservice.Options{
		APIKey:      *keyPtr,
		ForceStatus: *statusPtr,
		Credits:     *creditsPtr,
		Logger:      system.Logger,
	})

	system.Logger.Info("mock prediction service starting",
		zap.String("addr", *addrPtr),
		zap.Int("force_status", *statusPtr))
	if err := s.Router().Run(*addrPtr); err != nil {
		system.Logger.Fatal("server stopped", zap.Error(err))
	}
}
