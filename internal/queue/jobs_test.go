package queue

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestProcessTask(t *testing.T) {
	task, err := NewProcessTask("doc-7")
	require.NoError(t, err)
	require.Equal(t, ProcessDocumentTask, task.Type())
	require.JSONEq(t, `{"document_id":"doc-7"}`, string(task.Payload()))

	payload, err := ParseProcessPayload(task)
	require.NoError(t, err)
	require.Equal(t, "doc-7", payload.DocumentID)
}

func TestProcessTaskRejectsEmptyID(t *testing.T) {
	_, err := NewProcessTask("")
	require.Error(t, err)

	_, err = ParseProcessPayload(asynq.NewTask(ProcessDocumentTask, []byte(`{}`)))
	require.Error(t, err)
	_, err = ParseProcessPayload(asynq.NewTask(ProcessDocumentTask, []byte(`not json`)))
	require.Error(t, err)
}
