package client

import (
	"context"
	"encoding/json"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/rpc"
)

// UserClient 拉取用户昵称，feed作者拼装用
type UserClient struct {
	gw *rpc.Gateway
}

func NewUserClient() (*UserClient, error) {
	gw, err := rpc.NewGateway("video", config.ConfigInfo.Etcd.Addr, config.ConfigInfo.Rpc.IdlDir)
	if err != nil {
		return nil, err
	}
	return &UserClient{gw: gw}, nil
}

// AuthorName 查作者昵称。传输层错误原样上抛，由调用方决定是否降级。
func (c *UserClient) AuthorName(ctx context.Context, userID int64) (string, error) {
	req, err := json.Marshal(map[string]interface{}{"user_id": userID})
	if err != nil {
		return "", err
	}

	resp, err := c.gw.Call(ctx, rpc.ServiceAuth, "UserInfo", string(req), constants.RpcDefaultTimeout)
	if err != nil {
		return "", err
	}

	var out struct {
		Nickname string `json:"nickname"`
	}
	if err := json.Unmarshal([]byte(resp), &out); err != nil {
		return "", errno.RemoteBizErr.WithMessage("malformed user info response")
	}
	return out.Nickname, nil
}
