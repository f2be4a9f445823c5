package model

// TaskState 是异步入库任务的状态。
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskDone    TaskState = "done"
	TaskFailed  TaskState = "failed"
)

// TaskStatus 记录异步入库任务的进度与结果。
type TaskStatus struct {
	TaskID     string    `json:"taskId"`
	Filename   string    `json:"filename"`
	IndexName  string    `json:"index"`
	State      TaskState `json:"state"`
	DocumentID string    `json:"documentId,omitempty"`
	ErrorKind  string    `json:"errorKind,omitempty"`
	Error      string    `json:"error,omitempty"`
}
