package logger

const (
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	FieldService  = "service"
	FieldIdentity = "identity"
	FieldUserID   = "user_id"

	FieldHub            = "hub"
	FieldEvent          = "event"
	FieldNotificationID = "notification_id"
	FieldChannel        = "channel"
	FieldRecipient      = "recipient"
)
