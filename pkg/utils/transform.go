package utils

import "time"

// RepoFullName joins owner and name the way GitHub renders it.
func RepoFullName(owner, name string) string {
	return owner + "/" + name
}

// DayStart truncates t to 00:00 of its calendar day in UTC.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
