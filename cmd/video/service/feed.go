package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/pkg/errors"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/dal/db"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/cache"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/errno"
)

// UnknownAuthor 作者服务不可用时的降级占位
const UnknownAuthor = "unknown"

// FeedVideo feed里的单个视频，作者与计数已拼装完成
type FeedVideo struct {
	VideoId    int64  `json:"video_id"`
	Title      string `json:"title"`
	CoverUrl   string `json:"cover_url"`
	AuthorId   int64  `json:"author_id"`
	AuthorName string `json:"author_name"`
	Views      int64  `json:"views"`
	Likes      int64  `json:"likes"`
	Comments   int64  `json:"comments"`
}

// FeedPage 一页feed，缓存的就是这个结构的JSON
type FeedPage struct {
	UserId   int64        `json:"user_id"`
	Page     int64        `json:"page"`
	VideoIds []int64      `json:"video_ids"`
	Videos   []*FeedVideo `json:"videos"`
	Total    int64        `json:"total"`
	HasMore  bool         `json:"has_more"`
}

// FeedRepository 权威存储的feed查询入口
type FeedRepository interface {
	RankedVideoList(ctx context.Context, offset, limit int) ([]*db.FeedCandidate, error)
	CountVideos(ctx context.Context) (int64, error)
}

// AuthorProvider 作者信息查询，跨服务调用
type AuthorProvider interface {
	AuthorName(ctx context.Context, userID int64) (string, error)
}

// ComputeCache 带单次重建保证的读穿缓存
type ComputeCache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration,
		compute func(ctx context.Context) ([]byte, error)) ([]byte, error)
}

// FeedAssembler 组装个性化feed页。缓存未命中时从权威存储取排序结果，
// 作者信息失败只降级不失败整页。
type FeedAssembler struct {
	cache   ComputeCache
	repo    FeedRepository
	authors AuthorProvider
}

func NewFeedAssembler(cache ComputeCache, repo FeedRepository, authors AuthorProvider) *FeedAssembler {
	return &FeedAssembler{cache: cache, repo: repo, authors: authors}
}

// GetFeed 取某用户的第page页feed。page从1开始，
// page和limit都必须为正，非法分页参数直接拒绝。
func (f *FeedAssembler) GetFeed(ctx context.Context, userID, page, limit int64) (*FeedPage, error) {
	if page <= 0 {
		return nil, errno.ParamErr.WithMessage("page must be positive")
	}
	if limit <= 0 {
		return nil, errno.ParamErr.WithMessage("limit must be positive")
	}
	if limit > constants.MaxFeedLimit {
		limit = constants.MaxFeedLimit
	}

	key := cache.FeedPageKey(userID, page)
	data, err := f.cache.GetOrCompute(ctx, key, constants.FeedCacheExpire,
		func(ctx context.Context) ([]byte, error) {
			p, err := f.assemble(ctx, userID, page, limit)
			if err != nil {
				return nil, err
			}
			return json.Marshal(p)
		})
	if err != nil {
		return nil, err
	}

	p := &FeedPage{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Wrap(err, "decode cached feed page")
	}
	return p, nil
}

// assemble 回源路径：排序、分页、作者拼装。多取一行判断hasMore。
func (f *FeedAssembler) assemble(ctx context.Context, userID, page, limit int64) (*FeedPage, error) {
	offset := (page - 1) * limit
	rows, err := f.repo.RankedVideoList(ctx, int(offset), int(limit)+1)
	if err != nil {
		return nil, err
	}

	hasMore := int64(len(rows)) > limit
	if hasMore {
		rows = rows[:limit]
	}

	total, err := f.repo.CountVideos(ctx)
	if err != nil {
		return nil, err
	}

	p := &FeedPage{
		UserId:   userID,
		Page:     page,
		VideoIds: make([]int64, 0, len(rows)),
		Videos:   make([]*FeedVideo, 0, len(rows)),
		Total:    total,
		HasMore:  hasMore,
	}

	// 同一页里同作者只查一次
	names := make(map[int64]string)
	for _, r := range rows {
		name, ok := names[r.UserId]
		if !ok {
			name = f.lookupAuthor(ctx, r.UserId)
			names[r.UserId] = name
		}
		p.VideoIds = append(p.VideoIds, r.VideoId)
		p.Videos = append(p.Videos, &FeedVideo{
			VideoId:    r.VideoId,
			Title:      r.Title,
			CoverUrl:   r.CoverUrl,
			AuthorId:   r.UserId,
			AuthorName: name,
			Views:      r.Views,
			Likes:      r.Likes,
			Comments:   r.Comments,
		})
	}
	return p, nil
}

// lookupAuthor 作者查询失败降级为占位名，feed整体可用优先
func (f *FeedAssembler) lookupAuthor(ctx context.Context, userID int64) string {
	if f.authors == nil {
		return UnknownAuthor
	}
	name, err := f.authors.AuthorName(ctx, userID)
	if err != nil || name == "" {
		hlog.CtxWarnf(ctx, "Author lookup degraded for user %d: %v", userID, err)
		return UnknownAuthor
	}
	return name
}

// DBFeedRepository 生产实现，直接走dal/db
type DBFeedRepository struct{}

func (DBFeedRepository) RankedVideoList(ctx context.Context, offset, limit int) ([]*db.FeedCandidate, error) {
	return db.RankedVideoList(ctx, offset, limit)
}

func (DBFeedRepository) CountVideos(ctx context.Context) (int64, error) {
	return db.CountVideos(ctx)
}

var _ FeedRepository = DBFeedRepository{}
