package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockscreen/internal/model"
)

func TestEnabled(t *testing.T) {
	assert.False(t, (&SMTPConfig{}).Enabled())
	assert.False(t, (&SMTPConfig{Server: "smtp.example.com", From: "a@b.c"}).Enabled())
	assert.True(t, (&SMTPConfig{Server: "smtp.example.com", From: "a@b.c", To: "d@e.f"}).Enabled())
}

func TestBuildHTMLTable(t *testing.T) {
	quotes := []model.Quote{
		{Code: "sh600519", Name: "贵州茅台", Price: 1700.5, ChangePercent: 2.1, TurnoverRate: 0.5, VolumeRatio: 1.1, CirculatingMarketValue: 2.1e12},
		{Code: "sz000001", Name: "<平安>银行", Price: 11.2, ChangePercent: -1.3, TurnoverRate: 13.96, VolumeRatio: 0.9, CirculatingMarketValue: 2.2e11},
	}
	html := buildHTMLTable(quotes)

	assert.Contains(t, html, "共 2 条")
	assert.Contains(t, html, "sh600519")
	// 换手率小数形式在渲染前规范化为百分比
	assert.Contains(t, html, "<td>50.00</td>")
	assert.Contains(t, html, "<td>13.96</td>")
	// 流通市值按亿元展示
	assert.Contains(t, html, "<td>21000.00</td>")
	// 名称做 HTML 转义
	assert.Contains(t, html, "&lt;平安&gt;银行")
	assert.NotContains(t, html, "<平安>")
}

func TestBuildHTMLTableTruncates(t *testing.T) {
	quotes := make([]model.Quote, maxReportRows+10)
	for i := range quotes {
		quotes[i] = model.Quote{Code: "sh600000", Name: "测试"}
	}
	html := buildHTMLTable(quotes)
	assert.Equal(t, maxReportRows, strings.Count(html, "<tr><td>"))
	assert.Contains(t, html, "共 60 条")
}
