package conf

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMinConfidence = 0.7
	DefaultRenderWorkers = 4
	DefaultSpeciesURL    = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent     = "birdnet-ingest/1.0 (Bird Classification App; https://github.com/tphakala/birdnet-ingest)"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/birdnet-ingest.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("server.listen", "0.0.0.0:8000")
	viper.SetDefault("server.maxuploadsize", 200<<20)
	viper.SetDefault("server.corsorigins", []string{"*"})
	viper.SetDefault("server.shutdowngrace", 30*time.Second)

	viper.SetDefault("storage.path", "storage")
	viper.SetDefault("storage.urlprefix", "/storage")

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.sqlite.path", "birds.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.database", "birds")
	viper.SetDefault("database.postgres.host", "localhost")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.database", "birds")
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	viper.SetDefault("detection.engine", "command")
	viper.SetDefault("detection.minconfidence", DefaultMinConfidence)
	viper.SetDefault("detection.command.path", "birdnet-analyze")
	viper.SetDefault("detection.command.args", []string{
		"--input", "{input}", "--lat", "{lat}", "--lon", "{lon}",
		"--date", "{date}", "--min_conf", "{min_conf}", "--format", "json",
	})
	viper.SetDefault("detection.command.timeout", 5*time.Minute)
	viper.SetDefault("detection.http.url", "http://localhost:8080/analyze")
	viper.SetDefault("detection.http.timeout", 5*time.Minute)

	viper.SetDefault("render.workers", DefaultRenderWorkers)
	viper.SetDefault("render.spectrogram.fftsize", 2048)
	viper.SetDefault("render.spectrogram.hopsize", 512)
	viper.SetDefault("render.spectrogram.melbands", 128)
	viper.SetDefault("render.spectrogram.maxfrequency", 8000.0)
	viper.SetDefault("render.spectrogram.pixelsperinch", 100)
	viper.SetDefault("render.spectrogram.height", 600)

	viper.SetDefault("speciesinfo.endpoint", DefaultSpeciesURL)
	viper.SetDefault("speciesinfo.timeout", 10*time.Second)
	viper.SetDefault("speciesinfo.useragent", DefaultUserAgent)
	viper.SetDefault("speciesinfo.cachettl", 24*time.Hour)
	viper.SetDefault("speciesinfo.ratelimit", 1.0)
	viper.SetDefault("speciesinfo.resolveconcurrency", 1)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
