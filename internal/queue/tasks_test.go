package queue

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexPushTask(t *testing.T) {
	task, err := NewIndexPushTask(IndexPushPayload{ProjectID: "p1", Reset: true})
	require.NoError(t, err)
	assert.Equal(t, TypeIndexPush, task.Type())

	var got IndexPushPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &got))
	assert.Equal(t, IndexPushPayload{ProjectID: "p1", Reset: true}, got)
}

func TestDecodePayload(t *testing.T) {
	task, err := NewDataProcessTask(DataProcessPayload{ProjectID: "p1", FileID: "x_a.txt", ChunkSize: 100, OverlapSize: 20})
	require.NoError(t, err)

	var got DataProcessPayload
	require.NoError(t, DecodePayload(task, &got))
	assert.Equal(t, "x_a.txt", got.FileID)

	err = DecodePayload(asynq.NewTask(TypeDataProcess, []byte("[")), &got)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
