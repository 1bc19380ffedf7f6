package utils

const (
	TopicMessages    = "/topic/messages"
	TopicOnlineUsers = "/topic/online-users"
	TopicTyping      = "/topic/typing"

	SendMessageDestination = "/app/chat"
	SendTypingDestination  = "/app/typing"

	UsernameHeader = "X-Username"

	RedisHistoryKey  = "chat:history"
	RedisMessagesKey = "chat:messages"
	RedisRosterKey   = "chat:online"
)
