package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// configDir 由外部通过 SetConfigDir 指定，优先级最高
var configDir string

// envSearchDirs .env 文件搜索目录（仅 dev/test 使用，生产环境由 systemd 注入）
var envSearchDirs = []string{
	".",
	"..",
}

// SetConfigDir 设置配置文件目录（用于 --config 命令行参数）
// 调用后 Load 将优先从该目录加载配置文件
func SetConfigDir(dir string) {
	configDir = dir
}

// configPathsForEnv 根据环境返回配置文件搜索路径
func configPathsForEnv(env Environment) []string {
	if env == EnvProduction {
		return []string{"/etc/titlegen-admin"}
	}
	// dev/test: 项目根目录的 configs/
	return []string{"configs", "../configs"}
}

// GetConfigFilePath 返回当前加载的配置文件路径
func GetConfigFilePath() string {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	cfg := loadYAMLConfig(env)
	return cfg.loadedFrom
}

// ConfigExists 检测配置文件是否存在（用于首次运行检测）
//
// 搜索 {APP_ENV}.yaml（如 dev.yaml、prod.yaml），存在即视为已配置。
func ConfigExists() bool {
	return findConfigFile() != ""
}

// findConfigFile 在搜索路径中查找第一个存在的配置文件
func findConfigFile(extraNames ...string) string {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	names := []string{fmt.Sprintf("%s.yaml", env)}
	names = append(names, extraNames...)
	paths := effectiveConfigPaths()
	for _, base := range paths {
		for _, name := range names {
			p := filepath.Join(base, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// effectiveConfigPaths 返回实际搜索路径
//
// 优先级：
//  1. --config 命令行参数（SetConfigDir）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径
func effectiveConfigPaths() []string {
	if configDir != "" {
		return []string{configDir}
	}
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return []string{dir}
	}
	env := parseEnv(getEnv("APP_ENV", "dev"))
	return configPathsForEnv(env)
}

// loadEnvFiles 加载 .env 文件
//
// 生产环境不搜索 .env 文件（密码由 systemd EnvironmentFile 或 shell 环境注入）。
// dev/test 环境加载 .env.{env} 文件（凭据单一数据源，与 Docker Compose 共用）。
func loadEnvFiles(env Environment) {
	// 生产环境：不搜索 .env 文件
	if env == EnvProduction {
		return
	}

	// 加载 .env.{env}（dev/test 凭据文件，与 Docker Compose 共用）
	// godotenv.Load 不覆盖已有环境变量，优先级低于 shell 环境变量
	envFileName := fmt.Sprintf(".env.%s", string(env))
	for _, dir := range envSearchDirs {
		if err := godotenv.Load(filepath.Join(dir, envFileName)); err == nil {
			break
		}
	}

	// 兼容裸 .env 文件
	for _, dir := range envSearchDirs {
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			break
		}
	}
}
