package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 .env 文件（dev/test）
	loadEnvFiles(env)
	// .env 可能改写 APP_ENV
	env = parseEnv(getEnv("APP_ENV", string(env)))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	// 从环境变量获取敏感信息
	dbPassword := firstEnv("DB_PASSWORD", "MONGO_ROOT_PASSWORD")
	yamlCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	yamlCfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	yamlCfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	yamlCfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	yamlCfg.Auth.AdminEmail = os.Getenv("ADMIN_EMAIL")
	yamlCfg.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	yamlCfg.Notify.WebhookURL = os.Getenv("ALERT_WEBHOOK_URL")
	yamlCfg.Generation.APIKey = firstEnv("ANTHROPIC_API_KEY", "GEMINI_API_KEY")

	databaseURL := getEnv("DATABASE_URL", buildDatabaseURL(yamlCfg.Database, dbPassword))

	// 构建最终配置
	cfg := &Config{
		Env:            env,
		DatabaseDriver: detectDatabaseDriver(yamlCfg.Database.Driver, databaseURL),
		DatabaseURL:    databaseURL,
		DatabaseDBName: yamlCfg.Database.Name,
		RedisURL:       getEnv("REDIS_URL", buildRedisURL(yamlCfg.Redis)),
		APIPort:        yamlCfg.APIServer.Port,
		Auth:           yamlCfg.Auth,
		MinIO:          yamlCfg.MinIO,
		Generation:     yamlCfg.Generation,
		Notify:         yamlCfg.Notify,
		APIServer:      yamlCfg.APIServer,
		ConfigFilePath: yamlCfg.loadedFrom,
	}

	// 验证并填充生成管线默认值
	cfg.Generation.validate()

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *yamlConfigInternal {
	// 1. 初始化默认值
	cfg := &yamlConfigInternal{
		YAMLConfig: YAMLConfig{
			APIServer: APIServerConfig{Port: "8080"},
			Database:  DatabaseConfig{Host: "localhost", Port: 27017, Name: "titlegen_admin"},
			Redis:     RedisConfig{Host: "localhost", Port: 6379, DB: 0},
			MinIO:     MinIOConfig{Endpoint: "localhost:9000", Bucket: "titlegen-admin"},
			Generation: GenerationConfig{
				Provider:         "anthropic",
				ModelID:          "claude-sonnet-4-20250514",
				MaxOutputTokens:  512,
				TokenBudget:      100000,
				MinArticleLength: 100,
				RequestTimeout:   60 * time.Second,
				MaxRetries:       3,
				WorkerCount:      4,
				Retention:        24 * time.Hour,
			},
			Auth: AuthConfig{AccessTokenTTL: "15m", RefreshTokenTTL: "168h"},
		},
	}

	paths := effectiveConfigPaths()

	// 2. 加载 common.yaml（公共配置）
	for _, base := range paths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg.YAMLConfig)
			break
		}
	}

	// 3. 加载 {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range paths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, &cfg.YAMLConfig)
			cfg.loadedFrom = path
			break
		}
	}

	return cfg
}

// yamlConfigInternal 内部包装，记录配置文件来源（不参与 YAML 序列化）
type yamlConfigInternal struct {
	YAMLConfig
	loadedFrom string
}
