package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host": "127.0.0.1",
			"port": 3000,
		},
		"log": map[string]interface{}{
			"level": "info",
		},
		"journal": map[string]interface{}{
			"enabled": true,
			"path":    "remindd.db",
		},
		"notifier": map[string]interface{}{
			"kind": NotifierLog,
			"smtp": map[string]interface{}{
				"host":     "",
				"port":     587,
				"username": "",
				"password": "",
				"from":     "",
			},
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
