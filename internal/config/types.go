// Package config 统一配置管理
//
// 配置文件格式统一：API Server 和 Worker 共用同一 YAML schema，
// 通过不同章节（section）区分各组件的配置。
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件中（YAML 中不存储任何密码）。
//	.env 文件同时被 Docker Compose（--env-file）、Go 应用（godotenv）、
//	systemd（EnvironmentFile=）共用，确保单一数据源。
//
// 环境：
//   - 开发: APP_ENV=dev → configs/dev.yaml + .env.dev
//   - 测试: APP_ENV=test → configs/test.yaml + .env.test
//   - 生产: APP_ENV=prod → /etc/titlegen-admin/prod.yaml + prod.env
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test" // 测试环境（集成测试 + E2E 共用）
	EnvDevelopment Environment = "dev"
)

// YAMLConfig 统一 YAML 配置文件结构
// API Server 和 Worker 共用此格式，通过章节区分
type YAMLConfig struct {
	APIServer  APIServerConfig  `yaml:"api_server"` // API Server（端口 + URL）
	Database   DatabaseConfig   `yaml:"database"`   // 数据库（共享）
	Redis      RedisConfig      `yaml:"redis"`      // Redis（共享）
	MinIO      MinIOConfig      `yaml:"minio"`      // MinIO 对象存储（归档）
	Generation GenerationConfig `yaml:"generation"` // 生成管线（Worker）
	Auth       AuthConfig       `yaml:"auth"`       // 认证（API Server）
	Notify     NotifyConfig     `yaml:"notify"`     // 外部告警
}

// AuthConfig 认证配置
// 注意：JWTSecret/AdminEmail/AdminPassword 只从环境变量读取，不存储在 YAML 中
type AuthConfig struct {
	JWTSecret       string `yaml:"-"`                 // 只从 JWT_SECRET 环境变量读取
	AccessTokenTTL  string `yaml:"access_token_ttl"`  // 例如 "15m"
	RefreshTokenTTL string `yaml:"refresh_token_ttl"` // 例如 "168h"
	AdminEmail      string `yaml:"-"`                 // 只从 ADMIN_EMAIL 环境变量读取
	AdminPassword   string `yaml:"-"`                 // 只从 ADMIN_PASSWORD 环境变量读取
}

// APIServerConfig API Server 配置
type APIServerConfig struct {
	Port string `yaml:"port"` // 监听端口
	URL  string `yaml:"url"`  // API Server 完整 URL
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres", "sqlite", or "mongodb"（默认 mongodb）
	Path     string `yaml:"path"`   // SQLite 文件路径
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从环境变量读取（DB_PASSWORD / MONGO_ROOT_PASSWORD）
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	URI      string `yaml:"uri"` // MongoDB 连接 URI（优先于 host/port，如 mongodb://localhost:27017）
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL（优先于 host/port/db）
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`  // 是否使用 HTTPS
	Bucket    string `yaml:"bucket"`   // 默认 bucket 名称
}

// GenerationConfig 生成管线配置
//
// 时长字段在 YAML 中用字符串表示（如 "60s"、"24h"），
// 与 AuthConfig 的 TTL 字段一致，由 validate 解析填充。
type GenerationConfig struct {
	Provider           string        `yaml:"provider"`           // 模型提供方："anthropic"（默认）或 "gemini"
	ModelID            string        `yaml:"model_id"`           // 全局默认模型标识（项目可覆盖）
	APIKey             string        `yaml:"-"`                  // 只从 ANTHROPIC_API_KEY / GEMINI_API_KEY 环境变量读取
	MaxOutputTokens    int           `yaml:"max_output_tokens"`  // 单次生成输出上限
	TokenBudget        int           `yaml:"token_budget"`       // 请求总 token 预算
	MinArticleLength   int           `yaml:"min_article_length"` // 文章最小字符数
	RequestTimeoutStr  string        `yaml:"request_timeout"`    // 例如 "60s"
	RequestTimeout     time.Duration `yaml:"-"`                  // 单次模型调用超时（由 validate 解析）
	MaxRetries         int           `yaml:"max_retries"`        // 瞬时错误重试次数
	WorkerCount        int           `yaml:"worker_count"`       // Worker 并发消费协程数
	RetentionStr       string        `yaml:"retention"`          // 例如 "24h"
	Retention          time.Duration `yaml:"-"`                  // 执行记录保留窗口（由 validate 解析）
}

// NotifyConfig 外部告警配置
type NotifyConfig struct {
	WebhookURL string `yaml:"-"` // 只从 ALERT_WEBHOOK_URL 环境变量读取
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseDriver string // "postgres", "sqlite", or "mongodb"
	DatabaseURL    string
	DatabaseDBName string // MongoDB 数据库名称
	RedisURL       string
	APIPort        string
	Auth           AuthConfig
	MinIO          MinIOConfig      // MinIO 对象存储配置
	Generation     GenerationConfig // 生成管线配置
	Notify         NotifyConfig     // 外部告警配置
	APIServer      APIServerConfig  // API Server 配置（端口 + URL）
	ConfigFilePath string           // 实际加载的配置文件路径
}
