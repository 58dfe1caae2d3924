// Package scheduler runs the background side of the system: the integration
// job poller, the project reminder loop, and deferred communication
// processing, driven by asynq over Redis.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskIntegrationJobsPoll drains one batch of due integration jobs.
const TaskIntegrationJobsPoll = "integration.jobs.poll"

// TaskProjectRemindersDue fans out checks for projects whose nextCheckDate passed.
const TaskProjectRemindersDue = "projects.reminder.due"

// TaskProjectReminderCheck runs the decision engine for one due project.
const TaskProjectReminderCheck = "projects.reminder.check"

// TaskCommunicationProcess re-runs the pipeline for one stored communication.
const TaskCommunicationProcess = "communications.process"

type ProjectReminderCheckPayload struct {
	ProjectID string `json:"projectId"`
}

func NewProjectReminderCheckTask(payload ProjectReminderCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProjectReminderCheck, data), nil
}

func ParseProjectReminderCheckPayload(task *asynq.Task) (ProjectReminderCheckPayload, error) {
	var payload ProjectReminderCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProjectReminderCheckPayload{}, err
	}
	return payload, nil
}

type CommunicationProcessPayload struct {
	CommunicationID string `json:"communicationId"`
}

func NewCommunicationProcessTask(payload CommunicationProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommunicationProcess, data), nil
}

func ParseCommunicationProcessPayload(task *asynq.Task) (CommunicationProcessPayload, error) {
	var payload CommunicationProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CommunicationProcessPayload{}, err
	}
	return payload, nil
}
