package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeIndexPush   = "index:push"
	TypeDataProcess = "data:process"
)

const (
	QueueDefault = "default"
	QueueLow     = "low"
)

type IndexPushPayload struct {
	ProjectID string `json:"project_id"`
	Reset     bool   `json:"reset"`
}

type DataProcessPayload struct {
	ProjectID   string `json:"project_id"`
	FileID      string `json:"file_id,omitempty"`
	ChunkSize   int    `json:"chunk_size"`
	OverlapSize int    `json:"overlap_size"`
	DoReset     bool   `json:"do_reset"`
	Strategy    string `json:"strategy,omitempty"`
}

func NewIndexPushTask(p IndexPushPayload) (*asynq.Task, error) {
	return newTask(TypeIndexPush, p, asynq.Queue(QueueLow), asynq.MaxRetry(3), asynq.Timeout(30*time.Minute))
}

func NewDataProcessTask(p DataProcessPayload) (*asynq.Task, error) {
	return newTask(TypeDataProcess, p, asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

func newTask(taskType string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data, opts...), nil
}

// DecodePayload unmarshals a task payload. Malformed payloads are wrapped
// with asynq.SkipRetry since retrying cannot fix them.
func DecodePayload(t *asynq.Task, dst any) error {
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}
