package rediskey

import "fmt"

// Lock keys (global convention across binaries)
const (
	CronLockPrefix        = "cron:lock"
	IntegrationLockPrefix = "integration:lock"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildCronLockKey returns "cron:lock:{cronID}"
func BuildCronLockKey(cronID int64) string {
	return NamespaceKey(CronLockPrefix, fmt.Sprintf("%d", cronID))
}

// BuildIntegrationLockKey returns "integration:lock:{userID}"
func BuildIntegrationLockKey(userID int64) string {
	return NamespaceKey(IntegrationLockPrefix, fmt.Sprintf("%d", userID))
}
