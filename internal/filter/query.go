package filter

import (
	"net/url"
	"strings"

	"github.com/langchou/evfleet/internal/models"
)

// 查询串键名
const (
	KeyStatus   = "status"
	KeyCharging = "charging"
)

// Encode 序列化为查询串，例如 status=active,maintenance&charging=charging
// 空集合省略对应键
func Encode(f models.FilterState) string {
	parts := make([]string, 0, 2)
	if len(f.Status) > 0 {
		tokens := make([]string, len(f.Status))
		for i, s := range f.Status {
			tokens[i] = string(s)
		}
		parts = append(parts, KeyStatus+"="+joinTokens(tokens))
	}
	if len(f.Charging) > 0 {
		tokens := make([]string, len(f.Charging))
		for i, c := range f.Charging {
			tokens[i] = string(c)
		}
		parts = append(parts, KeyCharging+"="+joinTokens(tokens))
	}
	return strings.Join(parts, "&")
}

// Decode 解析查询串；缺失的键视为空集合，未知取值原样保留
// 同一键出现多次时合并全部取值，重复取值只保留首次出现
func Decode(query string) models.FilterState {
	query = strings.TrimPrefix(strings.TrimSpace(query), "?")

	f := Clear()
	// ParseQuery 遇到非法片段时仍返回其余已解析的键值
	values, _ := url.ParseQuery(query)

	for _, token := range parseList(values[KeyStatus]) {
		f.Status = append(f.Status, models.VehicleStatus(token))
	}
	for _, token := range parseList(values[KeyCharging]) {
		f.Charging = append(f.Charging, models.ChargingStatus(token))
	}
	return f
}

func joinTokens(tokens []string) string {
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = url.QueryEscape(t)
	}
	return strings.Join(escaped, ",")
}

func parseList(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, v := range strings.Split(value, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
