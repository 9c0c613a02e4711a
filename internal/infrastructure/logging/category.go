package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	MongoDB         Category = "MongoDB"
	Badger          Category = "Badger"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	WebSocket       Category = "WebSocket"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	ExternalService SubCategory = "ExternalService"

	// Presence
	Join     SubCategory = "Join"
	Leave    SubCategory = "Leave"
	Eviction SubCategory = "Eviction"

	// Broadcast
	Push      SubCategory = "Push"
	Broadcast SubCategory = "Broadcast"

	// Ingestion
	Enqueue SubCategory = "Enqueue"
	Consume SubCategory = "Consume"
	Persist SubCategory = "Persist"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"

	ConnectionID ExtraKey = "ConnectionId"
	TeamCode     ExtraKey = "TeamCode"
	UserID       ExtraKey = "UserId"
	Action       ExtraKey = "Action"
	BatchSize    ExtraKey = "BatchSize"
)
