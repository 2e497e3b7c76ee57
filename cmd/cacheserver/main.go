package main

import (
	"log"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/aixkai/naiveproxy/internal/admin"
	"github.com/aixkai/naiveproxy/internal/backend"
	"github.com/aixkai/naiveproxy/internal/cache"
	"github.com/aixkai/naiveproxy/internal/config"
	"github.com/aixkai/naiveproxy/internal/server"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	b := backend.New()
	if err := b.Initialize(cfg.Cache.Dir); err != nil {
		log.Fatalf("Failed to initialize backend: %v", err)
	}

	if cfg.Backend.DynamicResponses {
		b.GenerateDynamicResponses()
	}
	if cfg.Backend.WebTransport {
		b.EnableWebTransport()
	}
	applyOverrides(b, cfg)

	if cfg.Cache.Watch {
		stop, err := b.Watch()
		if err != nil {
			log.Fatalf("Failed to watch cache directory: %v", err)
		}
		defer stop()
	}

	if cfg.Server.Admin != "" {
		go func() {
			logrus.Infof("Admin API listening on %s", cfg.Server.Admin)
			if err := http.ListenAndServe(cfg.Server.Admin, admin.Router(b)); err != nil {
				logrus.Errorf("Admin API failed: %v", err)
			}
		}()
	}

	logrus.Infof("Serving cached responses on %s", cfg.Server.Listen)
	logrus.Infof("Cache directory: %s", cfg.Cache.Dir)

	srv := server.New(b)
	if err := http.ListenAndServe(cfg.Server.Listen, srv.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func applyOverrides(b *backend.Backend, cfg *config.Config) {
	for _, override := range cfg.Overrides {
		behavior, err := override.GetBehavior()
		if err == nil && behavior != cache.BehaviorNormal {
			b.AddSpecialResponse(override.Host, override.Path, behavior)
		}
		delay, err := override.GetDelay()
		if err == nil && delay > 0 {
			if !b.SetResponseDelay(override.Host, override.Path, delay) {
				logrus.Warnf("Delay override for %s%s matches no entry", override.Host, override.Path)
			}
		}
	}
}
