package constants

import "time"

// 各领域的消息队列与交换机
const (
	AuthQueue         = "auth_queue"
	VideoQueue        = "video_queue"
	InteractionQueue  = "interaction_queue"
	NotificationQueue = "notification_queue"

	AuthEventExchange         = "auth_events"
	VideoEventExchange        = "video_events"
	InteractionEventExchange  = "interaction_events"
	NotificationEventExchange = "notification_events"

	// 死信队列后缀，例如 interaction_queue_dlq
	DeadLetterSuffix = "_dlq"
)

// 缓存key格式，需与其他服务保持一致，不可修改
const (
	VideoViewsKeyFmt    = "video:%d:views"
	VideoLikesKeyFmt    = "video:%d:likes"
	VideoCommentsKeyFmt = "video:%d:comments"
	FeedPageKeyFmt      = "feed:%d:%d"
	SessionKeyFmt       = "session:%d"
)

// 缓存过期时间
const (
	CounterCacheExpire = time.Hour
	FeedCacheExpire    = 5 * time.Minute
	SessionExpire      = 24 * time.Hour
)

// 事件处理相关
const (
	MaxProcessRetries  = 3
	ProcessBackoffBase = time.Second
	ProcessBackoffMax  = time.Minute
	ConsumerPrefetch   = 10
	ConsumerShards     = 8

	// 幂等key的保留窗口，超过后由清理任务删除
	DedupRetention = 24 * time.Hour
)

// RPC相关
const (
	RpcMaxRetries     = 2
	RpcBackoffBase    = 50 * time.Millisecond
	RpcBackoffMax     = time.Second
	RpcDefaultTimeout = 3 * time.Second
)

// Feed相关
const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 100

	// 点赞数跨过该阈值时视为可能影响feed排序
	TrendingThreshold = 1000

	// 计数事件触发feed失效时只清理前N页
	FeedInvalidatePages = 3
)

const DataFormate = "2006-01-02 15:04:05"
