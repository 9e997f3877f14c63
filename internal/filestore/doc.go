// Package filestore holds files uploaded to tasks. Each task owns one storage
// location allocated at creation time; uploads are written inside it under a
// sanitized name and never overwrite an existing file.
package filestore
