package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Settings is the process configuration, read from the environment after godotenv has
// loaded any .env file.
type Settings struct {
	Port string
	Env  string

	MongoURI string
	MongoDB  string

	RedisAddress  string
	RedisPassword string

	JWTSecret   string
	Domain      string
	CORSOrigins []string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string

	FilesystemDisk string
	StorageRoot    string
	GCSBucket      string

	QueueName        string
	ReportDailyLimit int

	// Supervisor account created at startup when SupervisorEmail is set.
	SupervisorName     string
	SupervisorEmail    string
	SupervisorPassword string
}

func (s Settings) IsProduction() bool { return s.Env == "production" }

// Load reads Settings and fails listing every required variable that is missing.
func Load() (Settings, error) {
	s := Settings{
		Port:               getenv("PORT", "8080"),
		Env:                getenv("GO_ENV", "development"),
		MongoURI:           os.Getenv("MONGODB_URI"),
		MongoDB:            getenv("MONGODB_DB", "damage_reports"),
		RedisAddress:       getenv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		Domain:             os.Getenv("DOMAIN"),
		CORSOrigins:        splitList(getenv("CORS_ORIGINS", "http://localhost:3000")),
		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:  os.Getenv("OPENROUTER_BASE_URL"),
		OpenRouterModel:    os.Getenv("OPENROUTER_MODEL"),
		FilesystemDisk:     getenv("FILESYSTEM_DISK", "public"),
		StorageRoot:        getenv("STORAGE_ROOT", "storage/app/public"),
		GCSBucket:          os.Getenv("GCS_BUCKET"),
		QueueName:          getenv("QUEUE_NAME", "damage-reports:analyze"),
		SupervisorName:     getenv("SUPERVISOR_NAME", "Supervisor"),
		SupervisorEmail:    strings.TrimSpace(os.Getenv("SUPERVISOR_EMAIL")),
		SupervisorPassword: os.Getenv("SUPERVISOR_PASSWORD"),
	}

	var missing []string
	for name, v := range map[string]string{
		"MONGODB_URI": s.MongoURI,
		"JWT_SECRET":  s.JWTSecret,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if s.FilesystemDisk == "gcs" && s.GCSBucket == "" {
		missing = append(missing, "GCS_BUCKET")
	}
	if s.SupervisorEmail != "" && s.SupervisorPassword == "" {
		missing = append(missing, "SUPERVISOR_PASSWORD")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Settings{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	limit, err := strconv.Atoi(getenv("REPORT_DAILY_LIMIT", "50"))
	if err != nil || limit < 1 {
		return Settings{}, errors.New("REPORT_DAILY_LIMIT must be a positive integer")
	}
	s.ReportDailyLimit = limit
	return s, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
