package detection

import (
	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
)

// ClientConfig returns the HTTP client settings for the classifier. A
// classifier may take minutes before it sends headers, so the response
// header timeout follows the configured request timeout.
func ClientConfig(settings *conf.DetectionHTTPSettings) *httpclient.Config {
	cfg := httpclient.DefaultConfig()
	if settings.Timeout > 0 {
		cfg.DefaultTimeout = settings.Timeout
		cfg.ResponseHeaderTimeout = settings.Timeout
	}
	return &cfg
}

// NewEngine builds the engine selected by settings. client is used by the
// HTTP engine; when nil one is built from ClientConfig.
func NewEngine(settings *conf.DetectionSettings, client *httpclient.Client) (Engine, error) {
	switch settings.Engine {
	case conf.EngineCommand:
		return &CommandEngine{
			Path:    settings.Command.Path,
			Args:    settings.Command.Args,
			Timeout: settings.Command.Timeout,
		}, nil
	case conf.EngineHTTP:
		if client == nil {
			client = httpclient.New(ClientConfig(&settings.HTTP))
		}
		return &HTTPEngine{
			URL:     settings.HTTP.URL,
			Timeout: settings.HTTP.Timeout,
			Client:  client,
		}, nil
	default:
		return nil, errors.Newf("unsupported detection engine %q", settings.Engine).
			Component("detection").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
