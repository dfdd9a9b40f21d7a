package main

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/service"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// InteractionServiceImpl 泛化JSON服务实现，契约见idl/interaction.thrift
type InteractionServiceImpl struct {
	reader *service.CounterReader
}

func (s *InteractionServiceImpl) GenericCall(ctx context.Context, method string, request interface{}) (interface{}, error) {
	reqJSON, ok := request.(string)
	if !ok {
		return nil, errno.ParamErr.WithMessage("request is not a JSON string")
	}

	switch method {
	case "QueryCounters":
		return s.handleQueryCounters(ctx, reqJSON)
	default:
		return nil, errno.ParamErr.WithMessage("unknown method: " + method)
	}
}

func (s *InteractionServiceImpl) handleQueryCounters(ctx context.Context, reqJSON string) (interface{}, error) {
	var req struct {
		VideoId int64 `json:"video_id"`
	}
	if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
		return nil, errno.ParamErr.WithMessage("malformed counters request")
	}
	if req.VideoId <= 0 {
		return nil, errno.ParamErr.WithMessage("video_id must be positive")
	}

	views, err := s.reader.Views(ctx, req.VideoId)
	if err != nil {
		hlog.CtxErrorf(ctx, "Query views failed for video %d: %v", req.VideoId, err)
		return nil, err
	}
	likes, err := s.reader.Likes(ctx, req.VideoId)
	if err != nil {
		hlog.CtxErrorf(ctx, "Query likes failed for video %d: %v", req.VideoId, err)
		return nil, err
	}
	comments, err := s.reader.Comments(ctx, req.VideoId)
	if err != nil {
		hlog.CtxErrorf(ctx, "Query comments failed for video %d: %v", req.VideoId, err)
		return nil, err
	}

	out, err := json.Marshal(map[string]interface{}{
		"video_id": req.VideoId,
		"views":    views,
		"likes":    likes,
		"comments": comments,
	})
	if err != nil {
		return nil, err
	}
	return string(out), nil
}
