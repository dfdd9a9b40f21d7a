package main

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/service"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// VideoServiceImpl 泛化JSON服务实现，契约见idl/video.thrift
type VideoServiceImpl struct {
	feed *service.FeedAssembler
}

func (s *VideoServiceImpl) GenericCall(ctx context.Context, method string, request interface{}) (interface{}, error) {
	reqJSON, ok := request.(string)
	if !ok {
		return nil, errno.ParamErr.WithMessage("request is not a JSON string")
	}

	switch method {
	case "Feed":
		return s.handleFeed(ctx, reqJSON)
	case "VideoInfo":
		return s.handleVideoInfo(ctx, reqJSON)
	default:
		return nil, errno.ParamErr.WithMessage("unknown method: " + method)
	}
}

func (s *VideoServiceImpl) handleFeed(ctx context.Context, reqJSON string) (interface{}, error) {
	var req struct {
		UserId int64 `json:"user_id"`
		Page   int64 `json:"page"`
		Limit  int64 `json:"limit"`
	}
	if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
		return nil, errno.ParamErr.WithMessage("malformed feed request")
	}
	// 调用方省略limit时用默认页大小，显式的非法值由service层拒绝
	if req.Limit == 0 {
		req.Limit = constants.DefaultFeedLimit
	}

	page, err := s.feed.GetFeed(ctx, req.UserId, req.Page, req.Limit)
	if err != nil {
		hlog.CtxErrorf(ctx, "GetFeed failed for user %d page %d: %v", req.UserId, req.Page, err)
		return nil, err
	}
	return marshalResp(page)
}

func (s *VideoServiceImpl) handleVideoInfo(ctx context.Context, reqJSON string) (interface{}, error) {
	var req struct {
		VideoId int64 `json:"video_id"`
	}
	if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
		return nil, errno.ParamErr.WithMessage("malformed video info request")
	}

	info, err := service.GetVideoInfo(ctx, req.VideoId)
	if err != nil {
		hlog.CtxErrorf(ctx, "GetVideoInfo failed for video %d: %v", req.VideoId, err)
		return nil, err
	}
	return marshalResp(info)
}

func marshalResp(v interface{}) (interface{}, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(out), nil
}
