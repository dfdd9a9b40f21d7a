package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
)

// GetVideo 查单个可见视频，第二个返回值标记是否存在
func GetVideo(ctx context.Context, videoID int64) (*model.Video, bool, error) {
	video := &model.Video{}
	res := DB.WithContext(ctx).
		Where("video_id = ? AND (deleted_at IS NULL OR deleted_at = '')", videoID).
		Limit(1).
		Find(video)
	if res.Error != nil {
		return nil, false, errors.Wrapf(res.Error, "GetVideo failed, video=%d", videoID)
	}
	return video, res.RowsAffected > 0, nil
}
