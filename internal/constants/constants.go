package constants

// 用户类型常量
const (
	UserTypeMerchant  = "merchant"
	UserTypeAffiliate = "affiliate"
)

// 订单佣金结算状态常量
const (
	PayoutStatusUnpaid = "unpaid"
	PayoutStatusPaid   = "paid"
)

// 订单接入结果常量
const (
	IngestStatusCreated                 = "created"
	IngestStatusSkippedDuplicate        = "skipped_duplicate"
	IngestStatusRejectedUnknownMerchant = "rejected_unknown_merchant"
	IngestStatusFailed                  = "failed"
)

// 推广码与佣金比例常量
const (
	DiscountCodeLength       = 8
	DefaultCommissionRate    = "0.1"
	CommissionRateScale      = 4
	MoneyScale               = 2
	MerchantAPIDriverLocal   = "local"
	MerchantAPIDriverHTTP    = "http"
	EventCommissionLogged    = "commission.logged"
	DefaultIngestTimeoutSecs = 10
)

// 队列常量
const (
	QueueDefault    = "default"
	QueueCritical   = "critical"
	TaskOrderPayout = "order:payout"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault       = "ah"
	CacheKeyStatsGeneration  = "stats:generation"
	CacheKeyStatsWindowShape = "stats:%d:merchant:%d:window:%d:%d"
)
