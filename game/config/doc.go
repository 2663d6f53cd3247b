// Package config provides server configuration for the Xiangqi server.
//
// Configuration is layered, later sources winning:
//   - Built-in defaults (Default)
//   - An optional YAML file (Load)
//   - XQ_* environment variables (ApplyEnv), typically populated from .env
//   - Command-line flags, applied by the caller
//
// Validate checks the result once all layers are applied.
//
// Example file:
//
//	port: 8080
//	max_connections: 200
//	liveness_timeout: 2m
//	maintenance_interval: 15s
//	invitation_ttl: 5m
//	flying_general_policy: prevent
//	redis_url: redis://localhost:6379/0
//	log:
//	  level: debug
//	  format: json
//
// Usage:
//
//	cfg, err := config.Load("xiangqi.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.ApplyEnv(); err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config
