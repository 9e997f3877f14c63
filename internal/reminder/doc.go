// Package reminder defers task reminders to a wall-clock time and delivers them.
//
// A Scheduler registers a reminder by persisting it in the pending state. A
// Runner, running in the worker process or embedded in the API server, polls
// for due reminders, claims them atomically so no reminder is delivered twice,
// and hands each one to a notify.Notifier on a pool of worker goroutines.
// Reminders left in the processing state by a crashed runner are returned to
// pending after a configurable age.
package reminder
