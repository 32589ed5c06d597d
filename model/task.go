package model

import "time"

type TaskStatus string

const TASK_STATUS_SCHEDULED TaskStatus = "scheduled"
const TASK_STATUS_CANCELLED TaskStatus = "cancelled"
const TASK_STATUS_COMPLETED TaskStatus = "completed"

// ScheduledTask is the recurring job descriptor registered by the
// periodic_execution node. The scheduler fires the target node out of band;
// cancellation is a status marker consulted before each firing.
type ScheduledTask struct {
	Id             string       `json:"id"`
	BotId          string       `json:"botId"`
	FlowId         string       `json:"flowId"`
	NodeId         string       `json:"nodeId"`
	TargetNodeId   string       `json:"targetNodeId"`
	UserId         int64        `json:"userId"`
	ChatId         int64        `json:"chatId"`
	ScheduleType   ScheduleType `json:"scheduleType"`
	IntervalMs     int64        `json:"intervalMs"`
	CronExpression string       `json:"cronExpression"`
	MaxExecutions  int          `json:"maxExecutions"`
	Executions     int          `json:"executions"`
	Status         TaskStatus   `json:"status"`
	CreatedAt      time.Time    `json:"createdAt"`
}
