package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/model"
)

// FeedCandidate feed候选行，视频元数据带上当前计数快照
type FeedCandidate struct {
	VideoId  int64
	UserId   int64
	Title    string
	CoverUrl string
	Views    int64
	Likes    int64
	Comments int64
}

// hotScoreExpr 热度打分：点赞权重最高，评论次之，播放兜底。
// 计数行可能不存在，统一COALESCE成0。
const hotScoreExpr = "(COALESCE(c.likes, 0) * 3 + COALESCE(c.comments, 0) * 2 + COALESCE(c.views, 0))"

// RankedVideoList 按热度取一页feed候选。排序在固定数据快照上确定：
// 同分视频按video_id倒序打破平局，翻页不会出现重复或跳行。
func RankedVideoList(ctx context.Context, offset, limit int) ([]*FeedCandidate, error) {
	var rows []*FeedCandidate
	err := DB.WithContext(ctx).Table("videos AS v").
		Select("v.video_id, v.user_id, v.title, v.cover_url, " +
			"COALESCE(c.views, 0) AS views, " +
			"COALESCE(c.likes, 0) AS likes, " +
			"COALESCE(c.comments, 0) AS comments").
		Joins("LEFT JOIN video_counters AS c ON c.video_id = v.video_id").
		Where("v.deleted_at IS NULL OR v.deleted_at = ''").
		Order(hotScoreExpr + " DESC, v.video_id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "RankedVideoList failed, offset=%d limit=%d", offset, limit)
	}
	return rows, nil
}

// CountVideos 可见视频总数
func CountVideos(ctx context.Context) (int64, error) {
	var total int64
	err := DB.WithContext(ctx).Model(&model.Video{}).
		Where("deleted_at IS NULL OR deleted_at = ''").
		Count(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "CountVideos failed")
	}
	return total, nil
}
