package main

import (
	"flag"
	"log"

	"github.com/aiopslab/aiops-gateway/internal/config"
	"github.com/aiopslab/aiops-gateway/pkg/gateway"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	config.LoadEnvFiles([]string{".env.local", ".env"})

	cfg, err := config.New(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := gateway.New(cfg).Run(); err != nil {
		log.Fatal(err)
	}
}
