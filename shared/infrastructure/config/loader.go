package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// envFile is one optional dotenv layer. The base layer fills gaps only;
// overlays win over the process environment.
type envFile struct {
	name    string
	overlay bool
}

// envLayers lists the dotenv files in the order they apply: .env, then
// .env.<ENVIRONMENT> (or .env.<ENV>), then .env.local.
func envLayers() []envFile {
	layers := []envFile{{name: ".env"}}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		layers = append(layers, envFile{name: ".env." + env, overlay: true})
	}

	return append(layers, envFile{name: ".env.local", overlay: true})
}

func loadEnvFiles() error {
	for _, layer := range envLayers() {
		if _, err := os.Stat(layer.name); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		apply := godotenv.Load
		if layer.overlay {
			apply = godotenv.Overload
		}
		if err := apply(layer.name); err != nil {
			return fmt.Errorf("load %s: %w", layer.name, err)
		}
	}
	return nil
}
