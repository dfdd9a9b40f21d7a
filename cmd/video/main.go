package main

import (
	"log"
	"net"
	"path/filepath"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/kitex/pkg/generic"
	"github.com/cloudwego/kitex/pkg/rpcinfo"
	"github.com/cloudwego/kitex/server"
	"github.com/cloudwego/kitex/server/genericserver"
	etcd "github.com/kitex-contrib/registry-etcd"

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/dal"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/infras/client"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/infras/redis"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/video/service"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config"
)

func main() {
	// 初始化日志
	hlog.SetLevel(hlog.LevelInfo)

	// 初始化配置和依赖
	config.Init()
	dal.Init()
	redis.Load()

	userClient, err := client.NewUserClient()
	if err != nil {
		log.Fatalf("Failed to create user client: %v", err)
	}

	p, err := generic.NewThriftFileProvider(filepath.Join(config.ConfigInfo.Rpc.IdlDir, "video.thrift"))
	if err != nil {
		log.Fatalf("Failed to load video IDL: %v", err)
	}
	g, err := generic.JSONThriftGeneric(p)
	if err != nil {
		log.Fatalf("Failed to create generic: %v", err)
	}

	r, err := etcd.NewEtcdRegistry([]string{config.ConfigInfo.Etcd.Addr})
	if err != nil {
		log.Fatalf("Failed to create etcd registry: %v", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", config.ConfigInfo.Rpc.VideoAddr)
	if err != nil {
		log.Fatalf("Invalid video service addr: %v", err)
	}

	assembler := service.NewFeedAssembler(redis.Store, service.DBFeedRepository{}, userClient)

	svr := genericserver.NewServer(
		&VideoServiceImpl{feed: assembler},
		g,
		server.WithServiceAddr(addr),
		server.WithRegistry(r),
		server.WithServerBasicInfo(&rpcinfo.EndpointBasicInfo{ServiceName: "video"}),
	)

	hlog.Infof("Video service listening on %s", addr)
	if err := svr.Run(); err != nil {
		log.Fatalf("Video service stopped: %v", err)
	}
}
