package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Sheets struct {
	SpreadsheetID     string
	CredentialsFile   string
	VideoSheetName    string
	ProfilesSheetName string
	DriveFolderID     string
}

type X struct {
	ClientID     string
	ClientSecret string
	UploadURL    string
	APIURL       string
	TokenURL     string
	AuthURL      string
}

type Config struct {
	StoreBackend       string // sheets, postgres, memory
	MediaHost          string // r2, drive
	PostgresURI        string
	RedisURI           string
	FrontendURL        string
	ListenAddr         string
	R2                 R2
	Sheets             Sheets
	X                  X
	SecretKey          string
	CookieName         string
	APIKey             string
	MediaDir           string
	MediaCategory      string
	SegmentSize        int
	HTTPCallTimeout    time.Duration
	UploadTimeout      time.Duration
	ScheduleInterval   time.Duration
	ClaimLease         time.Duration
	TokenRefreshWindow time.Duration
}

func LoadConfig() *Config {
	return &Config{
		StoreBackend: getEnv("STORE_BACKEND", "sheets"),
		MediaHost:    getEnv("MEDIA_HOST", "r2"),
		PostgresURI:  getEnv("POSTGRES_URI", ""),
		RedisURI:     getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:5173"),
		ListenAddr:   getEnv("LISTEN_ADDR", ":3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Sheets: Sheets{
			SpreadsheetID:     getEnv("SPREADSHEET_ID", ""),
			CredentialsFile:   getEnv("GOOGLE_CREDENTIALS_FILE", ""),
			VideoSheetName:    getEnv("VIDEO_SHEET_NAME", "VideoDatabase"),
			ProfilesSheetName: getEnv("PROFILES_SHEET_NAME", "Profiles"),
			DriveFolderID:     getEnv("DRIVE_FOLDER_ID", ""),
		},
		X: X{
			ClientID:     getEnv("X_CLIENT_ID", ""),
			ClientSecret: getEnv("X_CLIENT_SECRET", ""),
			UploadURL:    getEnv("X_UPLOAD_URL", "https://upload.twitter.com/1.1/media/upload.json"),
			APIURL:       getEnv("X_API_URL", "https://api.x.com"),
			TokenURL:     getEnv("X_TOKEN_URL", "https://api.x.com/2/oauth2/token"),
			AuthURL:      getEnv("X_AUTH_URL", "https://x.com/i/oauth2/authorize"),
		},
		SecretKey:          getEnv("SECRET_KEY", ""),
		CookieName:         getEnv("COOKIE_NAME", "clipposter_session"),
		APIKey:             getEnv("API_KEY", ""),
		MediaDir:           getEnv("MEDIA_DIR", "media"),
		MediaCategory:      getEnv("MEDIA_CATEGORY", "tweet_video"),
		SegmentSize:        getEnvInt("UPLOAD_SEGMENT_BYTES", 4*1024*1024),
		HTTPCallTimeout:    getEnvDuration("HTTP_CALL_TIMEOUT", 2*time.Minute),
		UploadTimeout:      getEnvDuration("UPLOAD_TIMEOUT", 30*time.Minute),
		ScheduleInterval:   getEnvDuration("SCHEDULE_INTERVAL", time.Minute),
		ClaimLease:         getEnvDuration("CLAIM_LEASE", time.Hour),
		TokenRefreshWindow: getEnvDuration("TOKEN_REFRESH_WINDOW", 30*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
