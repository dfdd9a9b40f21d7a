package cache

import (
	"fmt"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/pkg/constants"
)

// 缓存key按实体类型加命名空间，与周边服务共享，格式不可变

func VideoViewsKey(videoID int64) string {
	return fmt.Sprintf(constants.VideoViewsKeyFmt, videoID)
}

func VideoLikesKey(videoID int64) string {
	return fmt.Sprintf(constants.VideoLikesKeyFmt, videoID)
}

func VideoCommentsKey(videoID int64) string {
	return fmt.Sprintf(constants.VideoCommentsKeyFmt, videoID)
}

// VideoCounterKey 按计数列名取对应key
func VideoCounterKey(videoID int64, column string) (string, bool) {
	switch column {
	case "views":
		return VideoViewsKey(videoID), true
	case "likes":
		return VideoLikesKey(videoID), true
	case "comments":
		return VideoCommentsKey(videoID), true
	}
	return "", false
}

func VideoCounterKeys(videoID int64) []string {
	return []string{
		VideoViewsKey(videoID),
		VideoLikesKey(videoID),
		VideoCommentsKey(videoID),
	}
}

func FeedPageKey(userID int64, page int64) string {
	return fmt.Sprintf(constants.FeedPageKeyFmt, userID, page)
}

// FeedPagePattern 匹配所有用户某一页的feed缓存
func FeedPagePattern(page int64) string {
	return fmt.Sprintf("feed:*:%d", page)
}

func SessionKey(userID int64) string {
	return fmt.Sprintf(constants.SessionKeyFmt, userID)
}
