// Package domain contains the core business entities, value objects, and
// domain logic of the application: tasks, their status vocabulary, due-date
// parsing, and the reminder payload that is snapshotted when a task is created.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
