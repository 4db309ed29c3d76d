// Package market 证券代码归一化：按号段推断交易所前缀、剥离前缀、生成上游 secid。
// 只做号段分类，不校验代码真实存在。
package market

import "strings"

// 交易所前缀
const (
	PrefixShanghai = "sh"
	PrefixShenzhen = "sz"
	PrefixBeijing  = "bj"
)

// 号段规则：上海 60/68，深圳 00/30，北京 43/83/87
var leadingDigitPrefix = []struct {
	leading string
	prefix  string
}{
	{"60", PrefixShanghai},
	{"68", PrefixShanghai},
	{"00", PrefixShenzhen},
	{"30", PrefixShenzhen},
	{"43", PrefixBeijing},
	{"83", PrefixBeijing},
	{"87", PrefixBeijing},
}

// Canonicalize 补全交易所前缀。已带前缀原样返回；号段不识别时也原样返回，
// 宁可放行不可误判。纯函数且幂等。
func Canonicalize(code string) string {
	if code == "" {
		return code
	}
	if hasKnownPrefix(code) {
		return code
	}
	digits := digitsOnly(code)
	for _, r := range leadingDigitPrefix {
		if strings.HasPrefix(digits, r.leading) {
			return r.prefix + digits
		}
	}
	return code
}

// BareCode 去掉 sh/sz/bj 前缀，返回纯代码。
func BareCode(code string) string {
	if hasKnownPrefix(code) {
		return code[2:]
	}
	return code
}

// SecID 生成上游行情接口的 secid：沪市 1.600519，深市/北交 0.000001。
func SecID(code string) string {
	bare := BareCode(Canonicalize(code))
	if bare == "" {
		return "0.000000"
	}
	if bare[0] == '6' || bare[0] == '5' || bare[0] == '9' {
		return "1." + bare
	}
	return "0." + bare
}

func hasKnownPrefix(code string) bool {
	return strings.HasPrefix(code, PrefixShanghai) ||
		strings.HasPrefix(code, PrefixShenzhen) ||
		strings.HasPrefix(code, PrefixBeijing)
}

func digitsOnly(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
