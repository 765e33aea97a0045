package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env       string
	AppSecret string
	JWTExpiry time.Duration
	Port      string
	SiteName  string
	SiteUrl   string

	DatabaseURL string

	// 向量模型配置
	OllamaHost   string
	OllamaModel  string
	EmbeddingDim int

	// 向量索引配置
	IVFClusters     int
	IVFNprobe       int
	RebuildInterval time.Duration
	RebuildDeletes  int
}

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinematch")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", "your-secret-key-change-in-production"))

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	dim, _ := strconv.Atoi(getEnv("EMBEDDING_DIM", "384"))
	clusters, _ := strconv.Atoi(getEnv("IVF_CLUSTERS", "100"))
	nprobe, _ := strconv.Atoi(getEnv("IVF_NPROBE", "8"))
	rebuildMin, _ := strconv.Atoi(getEnv("INDEX_REBUILD_MINUTES", "30"))
	rebuildDel, _ := strconv.Atoi(getEnv("INDEX_REBUILD_DELETES", "32"))

	return &Config{
		Env:             getEnv("APP_ENV", "development"),
		AppSecret:       appSecret,
		JWTExpiry:       time.Duration(expiryHours) * time.Hour,
		Port:            getEnv("PORT", "5005"),
		SiteName:        getEnv("SITE_NAME", "CineMatch"),
		SiteUrl:         getEnv("SITE_URL", "http://localhost:5005"),
		DatabaseURL:     dbURL,
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "all-minilm"),
		EmbeddingDim:    dim,
		IVFClusters:     clusters,
		IVFNprobe:       nprobe,
		RebuildInterval: time.Duration(rebuildMin) * time.Minute,
		RebuildDeletes:  rebuildDel,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
