package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedTime 时间字符串无法解析
// 处理策略：拒绝而非静默取零——候选日程中出现无法解析的时间时整体拒绝
var ErrMalformedTime = errors.New("时间格式无效")

// ToMinutes 将 "HH:MM" 解析为当日分钟偏移（0-1439）
// 接受 "8:30" 与 "08:30" 两种写法；小时 0-23、分钟 0-59，越界视为格式错误
func ToMinutes(t string) (int, error) {
	parts := strings.SplitN(t, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, t)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, t)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, t)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTime, t)
	}
	return hour*60 + minute, nil
}

// Overlaps 判断两个半开区间 [aStart, aEnd) 与 [bStart, bEnd) 是否重叠
// 严格半开语义：恰好首尾相接（a.end == b.start）不算重叠；对两个参数对称
func Overlaps(aStart, aEnd, bStart, bEnd string) (bool, error) {
	as, err := ToMinutes(aStart)
	if err != nil {
		return false, err
	}
	ae, err := ToMinutes(aEnd)
	if err != nil {
		return false, err
	}
	bs, err := ToMinutes(bStart)
	if err != nil {
		return false, err
	}
	be, err := ToMinutes(bEnd)
	if err != nil {
		return false, err
	}
	return as < be && bs < ae, nil
}
