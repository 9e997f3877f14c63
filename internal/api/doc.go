// Package api handles incoming HTTP requests for tasks, validates them and
// formats responses. It acts as an adapter between clients and the task
// service, translating HTTP concerns to business operations and service
// errors to status codes.
package api
