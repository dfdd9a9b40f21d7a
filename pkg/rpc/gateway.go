package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/kitex/client"
	"github.com/cloudwego/kitex/client/genericclient"
	"github.com/cloudwego/kitex/pkg/generic"
	"github.com/cloudwego/kitex/pkg/kerrors"
	"github.com/cloudwego/kitex/pkg/rpcinfo"
	etcd "github.com/kitex-contrib/registry-etcd"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// Service 目标服务，每个领域一个逻辑服务
type Service string

const (
	ServiceAuth         Service = "auth"
	ServiceVideo        Service = "video"
	ServiceInteraction  Service = "interaction"
	ServiceNotification Service = "notification"
)

var idlFiles = map[Service]string{
	ServiceAuth:         "auth.thrift",
	ServiceVideo:        "video.thrift",
	ServiceInteraction:  "interaction.thrift",
	ServiceNotification: "notification.thrift",
}

// Gateway 同步RPC通道，每个目标服务一个泛化client。
// 请求与响应对网关是不透明的JSON串，具体契约由各服务的IDL约定。
type Gateway struct {
	clients map[Service]genericclient.Client
}

// NewGateway callerName用于上报调用方身份，idlDir为thrift文件目录
func NewGateway(callerName, etcdAddr, idlDir string) (*Gateway, error) {
	r, err := etcd.NewEtcdResolver([]string{etcdAddr})
	if err != nil {
		return nil, err
	}

	clients := make(map[Service]genericclient.Client, len(idlFiles))
	for svc, file := range idlFiles {
		p, err := generic.NewThriftFileProvider(filepath.Join(idlDir, file))
		if err != nil {
			return nil, err
		}
		g, err := generic.JSONThriftGeneric(p)
		if err != nil {
			return nil, err
		}
		c, err := genericclient.NewClient(
			string(svc),
			g,
			client.WithMuxConnection(1),                       // mux
			client.WithRPCTimeout(constants.RpcDefaultTimeout), // rpc timeout
			client.WithConnectTimeout(5*time.Second),          // conn timeout
			client.WithResolver(r),                            // resolver
			client.WithClientBasicInfo(&rpcinfo.EndpointBasicInfo{ServiceName: callerName}),
		)
		if err != nil {
			return nil, err
		}
		clients[svc] = c
	}

	return &Gateway{clients: clients}, nil
}

// Call 发起一次同步调用。Unavailable与Timeout类错误做有界退避重试，
// 整体耗时受timeout约束；应用层错误不重试。
func (g *Gateway) Call(ctx context.Context, svc Service, method, reqJSON string, timeout time.Duration) (string, error) {
	cli, ok := g.clients[svc]
	if !ok {
		return "", errno.ParamErr.WithMessage("unknown service: " + string(svc))
	}
	if timeout <= 0 {
		timeout = constants.RpcDefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= constants.RpcMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", errno.RPCTimeoutErr.WithMessage(ctx.Err().Error())
			case <-time.After(jitteredBackoff(attempt)):
			}
			hlog.CtxInfof(ctx, "Retrying %s.%s (attempt %d)", svc, method, attempt+1)
		}

		resp, err := cli.GenericCall(ctx, method, reqJSON)
		if err == nil {
			s, ok := resp.(string)
			if !ok {
				return "", errno.RemoteBizErr.WithMessage(
					fmt.Sprintf("unexpected response type %T from %s.%s", resp, svc, method))
			}
			return s, nil
		}
		lastErr = classify(err)
		if !errno.IsRetryable(lastErr) {
			return "", lastErr
		}
	}
	return "", lastErr
}

// classify 将传输层错误映射为统一错误码
func classify(err error) error {
	switch {
	case errors.Is(err, kerrors.ErrRPCTimeout), errors.Is(err, context.DeadlineExceeded):
		return errno.RPCTimeoutErr.WithMessage(err.Error())
	case errors.Is(err, kerrors.ErrGetConnection),
		errors.Is(err, kerrors.ErrRemoteOrNetwork),
		errors.Is(err, kerrors.ErrServiceDiscovery),
		errors.Is(err, kerrors.ErrNoMoreInstance),
		errors.Is(err, kerrors.ErrCircuitBreak):
		return errno.RPCUnavailableErr.WithMessage(err.Error())
	default:
		return errno.RemoteBizErr.WithMessage(err.Error())
	}
}

// jitteredBackoff 指数退避加随机抖动，attempt从1开始
func jitteredBackoff(attempt int) time.Duration {
	d := constants.RpcBackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > constants.RpcBackoffMax {
		d = constants.RpcBackoffMax
	}
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}
