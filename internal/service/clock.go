package service

import "time"

// Clock 时钟抽象，所有时间戳写入都走这里，便于测试
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock 真实时钟
func SystemClock() Clock {
	return systemClock{}
}

// FixedClock 固定时钟（测试用）
type FixedClock struct {
	T time.Time
}

// Now 返回固定时间
func (c FixedClock) Now() time.Time {
	return c.T
}
