package util

import (
	"strconv"
	"time"
)

// DayIndex 返回给定时刻在 UTC 下自 Unix 纪元以来的天序号
func DayIndex(t time.Time) int64 {
	return t.UTC().Unix() / 86400
}

// CurrentDayIndex 当前天序号，随真实日界单调递增
func CurrentDayIndex() int64 {
	return DayIndex(time.Now())
}

// MustParseUint 将字符串转换为无符号整数，解析失败时返回 0
func MustParseUint(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 32)
	return uint(id)
}
