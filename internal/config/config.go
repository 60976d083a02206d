package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var formatsYAML []byte

type Config struct {
	Database DatabaseConfig
	Queue    QueueConfig
	Storage  StorageConfig
	Detector DetectorConfig
	Pipeline PipelineConfig
	Formats  FormatsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type QueueConfig struct {
	Brokers     []string // Kafka broker addresses
	FolderTopic string   // low-volume orchestration lane (default photoflow.folder)
	ImageTopic  string   // high-volume per-image lane (default photoflow.image)
	GroupID     string   // consumer group shared by workers (default photoflow-workers)
}

type StorageConfig struct {
	URL           string // Supabase project URL
	ServiceKey    string // service role key
	Bucket        string // bucket holding project folders
	SignedURLTTL  time.Duration
	ThumbnailsDir string // top-level prefix for derived thumbnails (default thumbnails)
}

type DetectorConfig struct {
	URL string // face detection service base URL (default http://localhost:8000)
}

type PipelineConfig struct {
	WorkersPerLane   int // parallel handler goroutines per lane (default 4)
	ThumbnailMaxSize int // max thumbnail dimension in pixels (default 512)
	ThumbnailQuality int // JPEG quality of derived thumbnails (default 80)
}

// FormatsConfig lists recognized file extensions, loaded from the
// embedded formats.yaml.
type FormatsConfig struct {
	Image []string `yaml:"image"`
	Raw   []string `yaml:"raw"`
}

// IsImage reports whether the object key has a recognized image or raw
// extension and should be ingested during folder enumeration.
func (f *FormatsConfig) IsImage(key string) bool {
	return f.hasExt(key, f.Image) || f.hasExt(key, f.Raw)
}

// IsRaw reports whether the object key is a camera-raw format that
// needs preview extraction before decoding.
func (f *FormatsConfig) IsRaw(key string) bool {
	return f.hasExt(key, f.Raw)
}

func (f *FormatsConfig) hasExt(key string, exts []string) bool {
	lower := strings.ToLower(key)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envStr reads an environment variable with a default.
func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var formats FormatsConfig
	if err := yaml.Unmarshal(formatsYAML, &formats); err != nil {
		// Embedded file, a parse failure is a build defect.
		panic("failed to unmarshal embedded formats.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Queue: QueueConfig{
			Brokers:     strings.Split(envStr("KAFKA_BROKERS", "localhost:9092"), ","),
			FolderTopic: envStr("KAFKA_FOLDER_TOPIC", "photoflow.folder"),
			ImageTopic:  envStr("KAFKA_IMAGE_TOPIC", "photoflow.image"),
			GroupID:     envStr("KAFKA_GROUP_ID", "photoflow-workers"),
		},
		Storage: StorageConfig{
			URL:           os.Getenv("STORAGE_URL"),
			ServiceKey:    os.Getenv("STORAGE_SERVICE_KEY"),
			Bucket:        envStr("STORAGE_BUCKET", "photoflow"),
			SignedURLTTL:  time.Duration(envInt("STORAGE_SIGNED_URL_TTL", 3600)) * time.Second,
			ThumbnailsDir: envStr("STORAGE_THUMBNAILS_DIR", "thumbnails"),
		},
		Detector: DetectorConfig{
			URL: envStr("DETECTOR_URL", "http://localhost:8000"),
		},
		Pipeline: PipelineConfig{
			WorkersPerLane:   envInt("PIPELINE_WORKERS_PER_LANE", 4),
			ThumbnailMaxSize: envInt("PIPELINE_THUMBNAIL_MAX_SIZE", 512),
			ThumbnailQuality: envInt("PIPELINE_THUMBNAIL_QUALITY", 80),
		},
		Formats: formats,
	}
}
