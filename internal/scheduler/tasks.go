package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskPresenceDetected = "outreach.presence.detected"

type PresenceDetectedPayload struct {
	Session     string `json:"session"`
	ChatAddress string `json:"chatAddress"`
	Status      string `json:"status"`
}

func NewPresenceDetectedTask(payload PresenceDetectedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPresenceDetected, data), nil
}

func ParsePresenceDetectedPayload(task *asynq.Task) (PresenceDetectedPayload, error) {
	var payload PresenceDetectedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PresenceDetectedPayload{}, err
	}
	return payload, nil
}
