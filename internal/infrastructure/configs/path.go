package configs

import (
	"flag"
	"os"

	"github.com/hilthontt/teamrelay/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file from --config, TEAMRELAY_CONFIG
// or the first well-known location that exists. An empty result means
// defaults plus environment only.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("TEAMRELAY_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"./tmp/config.yaml",
			"/etc/teamrelay/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
