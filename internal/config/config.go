// Package config 从文件或环境变量加载运行配置：接口节流、抓取分页与并发、
// 持久化后端、SMTP 与用户筛选条件。
package config

import (
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"stockscreen/internal/model"
)

// 配置路径与环境变量名
const (
	defaultConfigPath = "config.json"
	envConfigPath     = "CONFIG_PATH"

	envAPIDelayMS       = "STOCKSCREEN_API_DELAY_MS"
	envAPIJitterMS      = "STOCKSCREEN_API_JITTER_MS"
	envAPIMaxConcurrent = "STOCKSCREEN_API_MAX_CONCURRENT"

	envFetchPageSize    = "STOCKSCREEN_FETCH_PAGE_SIZE"
	envFetchConcurrency = "STOCKSCREEN_FETCH_CONCURRENCY"

	envRedisAddr     = "STOCKSCREEN_REDIS_ADDR"
	envRedisPassword = "STOCKSCREEN_REDIS_PASSWORD"
	envRedisDB       = "STOCKSCREEN_REDIS_DB"
	envDataFile      = "STOCKSCREEN_DATA_FILE"

	envSMTPServer   = "SMTP_SERVER"
	envSMTPPort     = "SMTP_PORT"
	envSMTPUser     = "SMTP_USER"
	envSMTPPassword = "SMTP_PASSWORD"
	envSMTPFrom     = "SMTP_FROM"
	envSMTPTo       = "SMTP_TO"

	envMinChangePct    = "STOCKSCREEN_MIN_CHANGE_PCT"
	envMaxChangePct    = "STOCKSCREEN_MAX_CHANGE_PCT"
	envMinPrice        = "STOCKSCREEN_MIN_PRICE"
	envMaxPrice        = "STOCKSCREEN_MAX_PRICE"
	envMinCircValue    = "STOCKSCREEN_MIN_CIRC_VALUE" // 亿元
	envMaxCircValue    = "STOCKSCREEN_MAX_CIRC_VALUE" // 亿元
	envMinVolumeRatio  = "STOCKSCREEN_MIN_VOLUME_RATIO"
	envMaxVolumeRatio  = "STOCKSCREEN_MAX_VOLUME_RATIO"
	envMinTurnover     = "STOCKSCREEN_MIN_TURNOVER"
	envMaxTurnover     = "STOCKSCREEN_MAX_TURNOVER"
	envMinMinuteStr    = "STOCKSCREEN_MIN_MINUTE_STRENGTH"
	envMaxMinuteStr    = "STOCKSCREEN_MAX_MINUTE_STRENGTH"
	envFilterST        = "STOCKSCREEN_FILTER_ST"
	envFilterChiNext   = "STOCKSCREEN_FILTER_CHINEXT"
	envSortBy          = "STOCKSCREEN_SORT_BY"
	envSortOrder       = "STOCKSCREEN_SORT_ORDER"
)

const defaultDataFile = "stockscreen_data.json"

// API 接口节流。DelayMS/JitterMS 为 0 时用内置默认（200ms/150ms），
// 要彻底关闭请设负值，如 api_jitter_ms: -1。
type API struct {
	DelayMS       int `json:"api_delay_ms"`
	JitterMS      int `json:"api_jitter_ms"`
	MaxConcurrent int `json:"api_max_concurrent"`
}

// Fetch 全市场抓取分页与并发。
type Fetch struct {
	PageSize    int `json:"fetch_page_size"`
	Concurrency int `json:"fetch_concurrency"`
}

// Redis 持久化后端；Addr 为空时使用本地文件。
type Redis struct {
	Addr     string `json:"redis_addr"`
	Password string `json:"redis_password"`
	DB       int    `json:"redis_db"`
}

type SMTP struct {
	Server   string `json:"smtp_server"`
	Port     int    `json:"smtp_port"`
	User     string `json:"smtp_user"`
	Password string `json:"smtp_password"`
	From     string `json:"smtp_from"`
	To       string `json:"smtp_to"`
}

func (s *SMTP) Enabled() bool {
	return strings.TrimSpace(s.Server) != "" &&
		strings.TrimSpace(s.From) != "" &&
		strings.TrimSpace(s.To) != ""
}

// Screen 用户筛选条件原始输入。区间值保留字符串：空串表示未设，
// 非法数字按规则回落（min 回默认下界，max 回 +Inf），不报错。
type Screen struct {
	MinChangePercent string `json:"min_change_percent"`
	MaxChangePercent string `json:"max_change_percent"`
	MinPrice         string `json:"min_price"`
	MaxPrice         string `json:"max_price"`
	MinCircValue     string `json:"min_circ_value"` // 亿元
	MaxCircValue     string `json:"max_circ_value"` // 亿元
	MinVolumeRatio   string `json:"min_volume_ratio"`
	MaxVolumeRatio   string `json:"max_volume_ratio"`
	MinTurnover      string `json:"min_turnover"`
	MaxTurnover      string `json:"max_turnover"`
	MinMinuteStr     string `json:"min_minute_strength"`
	MaxMinuteStr     string `json:"max_minute_strength"`
	FilterST         bool   `json:"filter_st"`
	FilterChiNext    bool   `json:"filter_chinext"`
	SortBy           string `json:"sort_by"`
	SortOrder        string `json:"sort_order"`
}

type Config struct {
	API      API    `json:"api"`
	Fetch    Fetch  `json:"fetch"`
	Redis    Redis  `json:"redis"`
	DataFile string `json:"data_file"`
	SMTP     SMTP   `json:"smtp"`
	Screen   Screen `json:"screen"`
}

// Load 先读 envConfigPath 指定文件（默认 config.json），再被环境变量覆盖。
func Load() *Config {
	cfg := &Config{DataFile: defaultDataFile}
	configPath := os.Getenv(envConfigPath)
	if configPath == "" {
		configPath = defaultConfigPath
	}
	if b, err := os.ReadFile(configPath); err == nil {
		_ = json.Unmarshal(b, cfg)
	}

	envInt(envAPIDelayMS, &cfg.API.DelayMS)
	envInt(envAPIJitterMS, &cfg.API.JitterMS)
	envInt(envAPIMaxConcurrent, &cfg.API.MaxConcurrent)
	envInt(envFetchPageSize, &cfg.Fetch.PageSize)
	envInt(envFetchConcurrency, &cfg.Fetch.Concurrency)

	envStr(envRedisAddr, &cfg.Redis.Addr)
	envStr(envRedisPassword, &cfg.Redis.Password)
	envInt(envRedisDB, &cfg.Redis.DB)
	envStr(envDataFile, &cfg.DataFile)

	envStr(envSMTPServer, &cfg.SMTP.Server)
	envInt(envSMTPPort, &cfg.SMTP.Port)
	envStr(envSMTPUser, &cfg.SMTP.User)
	envStr(envSMTPPassword, &cfg.SMTP.Password)
	envStr(envSMTPFrom, &cfg.SMTP.From)
	envStr(envSMTPTo, &cfg.SMTP.To)
	if cfg.SMTP.From == "" && cfg.SMTP.User != "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	envStr(envMinChangePct, &cfg.Screen.MinChangePercent)
	envStr(envMaxChangePct, &cfg.Screen.MaxChangePercent)
	envStr(envMinPrice, &cfg.Screen.MinPrice)
	envStr(envMaxPrice, &cfg.Screen.MaxPrice)
	envStr(envMinCircValue, &cfg.Screen.MinCircValue)
	envStr(envMaxCircValue, &cfg.Screen.MaxCircValue)
	envStr(envMinVolumeRatio, &cfg.Screen.MinVolumeRatio)
	envStr(envMaxVolumeRatio, &cfg.Screen.MaxVolumeRatio)
	envStr(envMinTurnover, &cfg.Screen.MinTurnover)
	envStr(envMaxTurnover, &cfg.Screen.MaxTurnover)
	envStr(envMinMinuteStr, &cfg.Screen.MinMinuteStr)
	envStr(envMaxMinuteStr, &cfg.Screen.MaxMinuteStr)
	envBool(envFilterST, &cfg.Screen.FilterST)
	envBool(envFilterChiNext, &cfg.Screen.FilterChiNext)
	envStr(envSortBy, &cfg.Screen.SortBy)
	envStr(envSortOrder, &cfg.Screen.SortOrder)

	return cfg
}

// FilterSpec 把原始输入转为筛选条件，非法输入回落默认界。
func (c *Config) FilterSpec() model.FilterSpec {
	spec := model.DefaultFilterSpec()
	s := c.Screen
	spec.MinChangePercent = parseBound(s.MinChangePercent, spec.MinChangePercent)
	spec.MaxChangePercent = parseBound(s.MaxChangePercent, spec.MaxChangePercent)
	spec.MinPrice = parseBound(s.MinPrice, spec.MinPrice)
	spec.MaxPrice = parseBound(s.MaxPrice, spec.MaxPrice)
	spec.MinCirculatingMarketValue = parseBound(s.MinCircValue, spec.MinCirculatingMarketValue)
	spec.MaxCirculatingMarketValue = parseBound(s.MaxCircValue, spec.MaxCirculatingMarketValue)
	spec.MinVolumeRatio = parseBound(s.MinVolumeRatio, spec.MinVolumeRatio)
	spec.MaxVolumeRatio = parseBound(s.MaxVolumeRatio, spec.MaxVolumeRatio)
	spec.MinTurnoverRate = parseBound(s.MinTurnover, spec.MinTurnoverRate)
	spec.MaxTurnoverRate = parseBound(s.MaxTurnover, spec.MaxTurnoverRate)
	spec.MinMinuteStrength = parseBound(s.MinMinuteStr, spec.MinMinuteStrength)
	spec.MaxMinuteStrength = parseBound(s.MaxMinuteStr, spec.MaxMinuteStrength)
	spec.FilterST = s.FilterST
	spec.FilterChiNext = s.FilterChiNext
	switch model.SortKey(s.SortBy) {
	case model.SortByChangePercent, model.SortByPrice, model.SortByCirculatingMarketValue,
		model.SortByVolumeRatio, model.SortByTurnoverRate:
		spec.SortBy = model.SortKey(s.SortBy)
	}
	if model.SortOrder(s.SortOrder) == model.SortAsc {
		spec.SortOrder = model.SortAsc
	}
	return spec
}

// parseBound 空串或非法数字回落 def；解析出 NaN 也视为非法。
func parseBound(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return def
	}
	return v
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	switch os.Getenv(key) {
	case "1", "true":
		*dst = true
	case "0", "false":
		*dst = false
	}
}
