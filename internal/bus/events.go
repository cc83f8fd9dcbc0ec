package bus

// Event name constants: the closed set named in spec §4.1. Extends the
// teacher's pkg/protocol event-name constant table style to the full
// domain-event surface the core publishes.
const (
	EventSessionCreated          = "agent:session.created"
	EventSessionDeleted          = "agent:session.deleted"
	EventSessionRolledBack       = "agent:session.rolledBack"
	EventChatStatusChanged       = "agent:chatStatusChanged"
	EventMessageCompleted        = "agent:message.completed"
	EventSessionCompressing      = "agent:session.compressing"

	EventToolExecuted = "tool:executed"

	EventDocumentSaved         = "document:saved"
	EventDocumentDeleted       = "document:deleted"
	EventDocumentMemoryUpdated = "document:memory.updated"

	EventLockChanged = "resource:lock.changed"

	EventFileOperation = "file:operation"

	EventTodoMutated      = "todo:mutated"
	EventClipboardMutated = "clipboard:mutated"

	EventBgStarted   = "bg:session.started"
	EventBgCompleted = "bg:session.completed"
	EventBgFailed    = "bg:session.failed"
	EventBgTimeout   = "bg:session.timeout"
	EventBgCancelled = "bg:session.cancelled"

	EventScheduleCreated  = "schedule:created"
	EventScheduleUpdated  = "schedule:updated"
	EventScheduleDeleted  = "schedule:deleted"
	EventScheduleReminded = "schedule:reminded"

	EventCronJobCreated  = "cron:job.created"
	EventCronJobExecuted = "cron:job.executed"
	EventCronJobFailed   = "cron:job.failed"

	EventTaskStarted   = "task:started"
	EventTaskCompleted = "task:completed"
	EventTaskFailed    = "task:failed"
	EventTaskCancelled = "task:cancelled"

	EventWorkflowStarted       = "workflow:started"
	EventWorkflowStepCompleted = "workflow:step.completed"
	EventWorkflowPaused        = "workflow:paused"
	EventWorkflowCompleted     = "workflow:completed"
	EventWorkflowFailed        = "workflow:failed"
	EventWorkflowDefRegistered = "workflow:def.registered"
	EventWorkflowDefDeleted    = "workflow:def.deleted"

	EventNotificationRequested = "notification:requested"
)

// AllEvents lists every event name above, in declaration order. The
// WebSocket broadcast sink subscribes to each of these individually since
// Bus has no wildcard subscription.
var AllEvents = []string{
	EventSessionCreated,
	EventSessionDeleted,
	EventSessionRolledBack,
	EventChatStatusChanged,
	EventMessageCompleted,
	EventSessionCompressing,

	EventToolExecuted,

	EventDocumentSaved,
	EventDocumentDeleted,
	EventDocumentMemoryUpdated,

	EventLockChanged,

	EventFileOperation,

	EventTodoMutated,
	EventClipboardMutated,

	EventBgStarted,
	EventBgCompleted,
	EventBgFailed,
	EventBgTimeout,
	EventBgCancelled,

	EventScheduleCreated,
	EventScheduleUpdated,
	EventScheduleDeleted,
	EventScheduleReminded,

	EventCronJobCreated,
	EventCronJobExecuted,
	EventCronJobFailed,

	EventTaskStarted,
	EventTaskCompleted,
	EventTaskFailed,
	EventTaskCancelled,

	EventWorkflowStarted,
	EventWorkflowStepCompleted,
	EventWorkflowPaused,
	EventWorkflowCompleted,
	EventWorkflowFailed,
	EventWorkflowDefRegistered,
	EventWorkflowDefDeleted,

	EventNotificationRequested,
}
