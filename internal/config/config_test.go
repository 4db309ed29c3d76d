package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockscreen/internal/model"
)

func TestParseBound(t *testing.T) {
	assert.Equal(t, 5.0, parseBound("5", 0))
	assert.Equal(t, -3.5, parseBound("-3.5", 0))
	assert.Equal(t, 7.0, parseBound(" 7 ", 0))
	// 空串与非法输入回落默认界
	assert.Equal(t, 0.0, parseBound("", 0))
	assert.Equal(t, 0.0, parseBound("abc", 0))
	assert.True(t, math.IsInf(parseBound("xyz", math.Inf(1)), 1))
	assert.Equal(t, 1.0, parseBound("NaN", 1))
}

func TestFilterSpecDefaults(t *testing.T) {
	var c Config
	spec := c.FilterSpec()
	def := model.DefaultFilterSpec()

	assert.Equal(t, def.MinPrice, spec.MinPrice)
	assert.True(t, math.IsInf(spec.MaxPrice, 1))
	assert.True(t, math.IsInf(spec.MinChangePercent, -1))
	assert.Equal(t, model.SortByChangePercent, spec.SortBy)
	assert.Equal(t, model.SortDesc, spec.SortOrder)
	assert.False(t, spec.FilterST)
}

func TestFilterSpecParsesInput(t *testing.T) {
	c := Config{Screen: Screen{
		MinChangePercent: "3",
		MaxChangePercent: "9.9",
		MinCircValue:     "10",
		MaxCircValue:     "bad-number", // 非法回落 +Inf
		MinTurnover:      "5",
		FilterST:         true,
		SortBy:           "turnoverRate",
		SortOrder:        "asc",
	}}
	spec := c.FilterSpec()

	assert.Equal(t, 3.0, spec.MinChangePercent)
	assert.Equal(t, 9.9, spec.MaxChangePercent)
	assert.Equal(t, 10.0, spec.MinCirculatingMarketValue)
	assert.True(t, math.IsInf(spec.MaxCirculatingMarketValue, 1))
	assert.Equal(t, 5.0, spec.MinTurnoverRate)
	assert.True(t, spec.FilterST)
	assert.Equal(t, model.SortByTurnoverRate, spec.SortBy)
	assert.Equal(t, model.SortAsc, spec.SortOrder)
}

func TestFilterSpecRejectsUnknownSort(t *testing.T) {
	c := Config{Screen: Screen{SortBy: "volume", SortOrder: "DESC"}}
	spec := c.FilterSpec()
	// volume 只用于榜单，筛选排序键回落默认；方向只认精确的 asc
	assert.Equal(t, model.SortByChangePercent, spec.SortBy)
	assert.Equal(t, model.SortDesc, spec.SortOrder)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api": {"api_delay_ms": 200},
		"fetch": {"fetch_page_size": 500},
		"screen": {"min_change_percent": "2", "sort_by": "price"}
	}`), 0o644))

	t.Setenv(envConfigPath, path)
	t.Setenv(envAPIDelayMS, "350") // 环境变量覆盖文件
	t.Setenv(envAPIJitterMS, "-1") // 负值表示关闭抖动
	t.Setenv(envMinPrice, "5")

	cfg := Load()
	assert.Equal(t, 350, cfg.API.DelayMS)
	assert.Equal(t, -1, cfg.API.JitterMS)
	assert.Equal(t, 500, cfg.Fetch.PageSize)
	assert.Equal(t, "stockscreen_data.json", cfg.DataFile)

	spec := cfg.FilterSpec()
	assert.Equal(t, 2.0, spec.MinChangePercent)
	assert.Equal(t, 5.0, spec.MinPrice)
	assert.Equal(t, model.SortByPrice, spec.SortBy)
}

func TestSMTPFromFallsBackToUser(t *testing.T) {
	t.Setenv(envConfigPath, filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv(envSMTPUser, "robot@example.com")
	t.Setenv(envSMTPFrom, "")

	cfg := Load()
	assert.Equal(t, "robot@example.com", cfg.SMTP.From)
}
