package service

import (
	"context"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/dal/db"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// VideoInfo 视频元数据查询结果
type VideoInfo struct {
	VideoId int64  `json:"video_id"`
	UserId  int64  `json:"user_id"`
	Title   string `json:"title"`
	Exists  bool   `json:"exists"`
}

// GetVideoInfo 查单个视频的基础信息，不存在时Exists为false
func GetVideoInfo(ctx context.Context, videoID int64) (*VideoInfo, error) {
	if videoID <= 0 {
		return nil, errno.ParamErr.WithMessage("video_id must be positive")
	}

	video, exists, err := db.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &VideoInfo{VideoId: videoID}, nil
	}
	return &VideoInfo{
		VideoId: video.VideoId,
		UserId:  video.UserId,
		Title:   video.Title,
		Exists:  true,
	}, nil
}
