package main

import (
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/config"
	"github.com/final-space-dev/jetline-machines-automation-sub000/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
