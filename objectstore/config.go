package objectstore

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// client settings loaded from the environment. all values have
// programmatic equivalents; this is a convenience for tools and
// services that configure the sdk from the process environment.
type ClientSettings struct {
	ServerUrl     string `env:"OBJECTSTORE_SERVER_URL" envDefault:"http://localhost:1337"`
	ApplicationId string `env:"OBJECTSTORE_APPLICATION_ID"`
	ClientKey     string `env:"OBJECTSTORE_CLIENT_KEY"`
	MasterKey     string `env:"OBJECTSTORE_MASTER_KEY"`
	SessionToken  string `env:"OBJECTSTORE_SESSION_TOKEN"`

	MaxRetries        int           `env:"OBJECTSTORE_MAX_RETRIES" envDefault:"3"`
	InitialRetryDelay time.Duration `env:"OBJECTSTORE_INITIAL_RETRY_DELAY" envDefault:"500ms"`
	MaxRetryDelay     time.Duration `env:"OBJECTSTORE_MAX_RETRY_DELAY" envDefault:"8s"`

	// path of the sqlite file backing the installation identity.
	// empty means in-memory only.
	StoragePath string `env:"OBJECTSTORE_STORAGE_PATH"`
}

func SettingsFromEnv() (*ClientSettings, error) {
	settings := &ClientSettings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return settings, nil
}

func (self *ClientSettings) Session() *Session {
	return &Session{
		ServerUrl:     self.ServerUrl,
		ApplicationId: self.ApplicationId,
		ClientKey:     self.ClientKey,
		MasterKey:     self.MasterKey,
		SessionToken:  self.SessionToken,
	}
}

func (self *ClientSettings) RunnerSettings() *RunnerSettings {
	return &RunnerSettings{
		MaxRetries:           self.MaxRetries,
		InitialRetryDelay:    self.InitialRetryDelay,
		MaxRetryDelay:        self.MaxRetryDelay,
		RetryDelayMultiplier: 2,
	}
}
