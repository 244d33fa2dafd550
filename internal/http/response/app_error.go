package response

// AppError 接口错误：HTTP 状态码、对外消息与不对外暴露的原始错误
type AppError struct {
	Status  int
	Message string
	Err     error
}

// NewAppError 构造接口错误
func NewAppError(status int, message string, cause error) *AppError {
	return &AppError{Status: status, Message: message, Err: cause}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ServerSide 服务端故障（5xx），记录为 error 级别
func (e *AppError) ServerSide() bool {
	return e.Status >= CodeInternal
}

// Retryable 调用方可原样重投（webhook 发送方据此重试）
func (e *AppError) Retryable() bool {
	return e.Status == CodeServiceUnavailable || e.Status == CodeTooManyRequests
}
