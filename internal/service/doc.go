// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects, the task store,
// file storage and the reminder scheduler to fulfill application features.
//
// The service layer depends on domain entities and on interfaces (store.TaskStore,
// filestore.Storage, reminder.Scheduler), never on specific infrastructure
// implementations.
//
// Error handling:
//   - Expected conditions are returned as sentinel errors (ErrTaskNotFound,
//     ErrReminderNotScheduled) or as the domain's validation errors
//   - Unexpected errors are wrapped in TaskServiceError with the failing operation
//   - The API layer maps these to HTTP status codes with errors.Is/errors.As
package service
