package model

// Video feed候选查询用的视频投影。计数不在这里，
// 权威计数只存video_counters，排序时join
type Video struct {
	VideoId   int64  `gorm:"column:video_id;primaryKey"`
	UserId    int64  `gorm:"column:user_id;index"`
	Title     string `gorm:"column:title"`
	CoverUrl  string `gorm:"column:cover_url"`
	CreatedAt string `gorm:"column:created_at"`
	DeletedAt string `gorm:"column:deleted_at;default:null"`
}

func (Video) TableName() string {
	return "videos"
}
