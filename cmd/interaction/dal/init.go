package dal

import (
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/dal/db"
)

func Init() {
	db.Init()
}
