package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	ServerAddr          string        `env:"RUN_ADDRESS"`
	LogLevel            string        `env:"LOG_LEVEL"`
	DatabaseURI         string        `env:"DATABASE_URI"`
	ReceiptsPath        string        `env:"RECEIPTS_PATH"`
	JWTSecretKey        string        `env:"JWT_SECRET_KEY"`
	JanitorScanInterval time.Duration `env:"JANITOR_SCAN_INTERVAL"`
}

func NewConfig() (Config, error) {
	cfg := Config{}

	flag.StringVar(&cfg.ServerAddr, "a", "0.0.0.0:8080", "server listening address [env:RUN_ADDRESS]")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log output level [env:LOG_LEVEL]")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database connection string [env:DATABASE_URI]")
	flag.StringVar(&cfg.ReceiptsPath, "f", "receipts.db", "receipt vault file path [env:RECEIPTS_PATH]")
	flag.StringVar(&cfg.JWTSecretKey, "s", "secretkey", "JWT secret to sign tokens [env:JWT_SECRET_KEY]")
	flag.DurationVar(&cfg.JanitorScanInterval, "i", 10*time.Minute, "receipt janitor scan interval [env:JANITOR_SCAN_INTERVAL]")
	flag.Parse()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("env.Parse: %w", err)
	}

	return cfg, nil
}
