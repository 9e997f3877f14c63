// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic: the task repository used by the API and
// the reminder repository that backs deferred notification delivery.
package store
