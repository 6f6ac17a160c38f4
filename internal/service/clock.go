package service

import "time"

// Clock abstracts time.Now so the scheduler can be driven by tests
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
