// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestTask describes one asynchronous ingestion job. The raw file has
// already been staged in object storage under ObjectName.
type IngestTask struct {
	TaskID     string `json:"task_id"`
	ObjectName string `json:"object_name"`
	Filename   string `json:"file_name"`
	IndexName  string `json:"index_name"`
}
