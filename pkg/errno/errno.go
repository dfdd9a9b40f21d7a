package errno

import (
	"errors"
	"fmt"
)

// ErrNo 统一错误码，服务间传递时只依赖ErrCode
type ErrNo struct {
	ErrCode int64
	ErrMsg  string
}

func (e ErrNo) Error() string {
	return fmt.Sprintf("err_code=%d, err_msg=%s", e.ErrCode, e.ErrMsg)
}

func NewErrNo(code int64, msg string) ErrNo {
	return ErrNo{ErrCode: code, ErrMsg: msg}
}

func (e ErrNo) WithMessage(msg string) ErrNo {
	e.ErrMsg = msg
	return e
}

// Is 支持errors.Is按错误码匹配
func (e ErrNo) Is(target error) bool {
	var t ErrNo
	if errors.As(target, &t) {
		return e.ErrCode == t.ErrCode
	}
	return false
}

const (
	SuccessCode        = 0
	ServiceErrCode     = 10001
	ParamErrCode       = 10002
	InfraErrCode       = 10003
	DuplicateEventCode = 10004
	DeadLetterCode     = 10005
	RPCTimeoutCode     = 10006
	RPCUnavailableCode = 10007
	RPCDegradedCode    = 10008
	RemoteBizErrCode   = 10009
)

var (
	Success    = NewErrNo(SuccessCode, "Success")
	ServiceErr = NewErrNo(ServiceErrCode, "Service internal error")

	// ParamErr 入参非法，直接拒绝，不重试
	ParamErr = NewErrNo(ParamErrCode, "Invalid parameter")

	// InfraErr 存储/缓存/队列暂时不可用，可退避重试
	InfraErr = NewErrNo(InfraErrCode, "Infrastructure temporarily unavailable")

	// DuplicateEvent 幂等命中，按成功处理
	DuplicateEvent = NewErrNo(DuplicateEventCode, "Event already processed")

	// DeadLetterErr 超过重试上限的毒消息，转入死信队列
	DeadLetterErr = NewErrNo(DeadLetterCode, "Event exceeded retry ceiling")

	RPCTimeoutErr     = NewErrNo(RPCTimeoutCode, "RPC call timed out")
	RPCUnavailableErr = NewErrNo(RPCUnavailableCode, "RPC target unavailable")

	// RPCDegraded 补充信息调用失败，调用方用兜底值降级
	RPCDegraded = NewErrNo(RPCDegradedCode, "RPC enrichment degraded")

	RemoteBizErr = NewErrNo(RemoteBizErrCode, "Remote returned application error")
)

// CodeOf 从错误链中提取错误码，非ErrNo视为ServiceErr
func CodeOf(err error) int64 {
	if err == nil {
		return SuccessCode
	}
	var e ErrNo
	if errors.As(err, &e) {
		return e.ErrCode
	}
	return ServiceErrCode
}

func IsParamErr(err error) bool { return CodeOf(err) == ParamErrCode }

func IsInfraErr(err error) bool { return CodeOf(err) == InfraErrCode }

// IsRetryable 只有基础设施类与RPC超时/不可用错误允许重试
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case InfraErrCode, RPCTimeoutCode, RPCUnavailableCode:
		return true
	}
	return false
}

// ConvertErr 将任意错误归一化为ErrNo
func ConvertErr(err error) ErrNo {
	if err == nil {
		return Success
	}
	var e ErrNo
	if errors.As(err, &e) {
		return e
	}
	return ServiceErr.WithMessage(err.Error())
}
