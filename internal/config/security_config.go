package config

import "time"

type SecurityConfig interface {
	GetSessionTTL() time.Duration
	GetSessionCookieName() string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionTTL() time.Duration {
	return 14 * 24 * time.Hour // Sessions expire after 14 days
}

func (Security) GetSessionCookieName() string {
	return "session_id"
}
