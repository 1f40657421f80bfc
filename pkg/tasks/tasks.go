// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// FileProcessingTask represents the data structure for a file processing job.
type FileProcessingTask struct {
	FileID     uint   `json:"file_id"`
	FileName   string `json:"file_name"`
	ObjectName string `json:"object_name"`
	MimeType   string `json:"mime_type"`
	UserID     uint   `json:"user_id"`
}
