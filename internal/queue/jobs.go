package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ProcessDocumentTask is scheduled each time a document is sent for
	// processing.
	ProcessDocumentTask = "document:process"

	maxRetry = 5
)

// ProcessPayload is serialized into the task payload.
type ProcessPayload struct {
	DocumentID string `json:"document_id"`
}

// NewProcessTask builds the asynq task for one document. The task id is
// derived from the document id so a double submit while queued is a no-op.
func NewProcessTask(documentID string) (*asynq.Task, error) {
	if documentID == "" {
		return nil, errors.New("process task: empty document id")
	}
	data, err := json.Marshal(ProcessPayload{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ProcessDocumentTask, data,
		asynq.MaxRetry(maxRetry),
		asynq.TaskID("process:"+documentID),
	), nil
}

// ParseProcessPayload decodes a task built by NewProcessTask.
func ParseProcessPayload(task *asynq.Task) (ProcessPayload, error) {
	var payload ProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if payload.DocumentID == "" {
		return ProcessPayload{}, errors.New("decode payload: empty document id")
	}
	return payload, nil
}

// Dispatcher hands process commands to the asynq worker fleet.
type Dispatcher struct {
	client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch enqueues processing for documentID.
func (d *Dispatcher) Dispatch(ctx context.Context, documentID string) error {
	task, err := NewProcessTask(documentID)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue process task: %w", err)
	}
	return nil
}
