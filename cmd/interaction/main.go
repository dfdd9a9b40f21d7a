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

	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/dal"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/infras/redis"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/cmd/interaction/service"
	"github.com/tiktok-clone-xander/tiktok-nestjs-sub001/config"
)

// 同步读路径的RPC入口。写路径走consumer二进制，不经过这里。
func main() {
	// 初始化日志
	hlog.SetLevel(hlog.LevelInfo)

	// 初始化配置和依赖
	config.Init()
	dal.Init()
	redis.Load()

	p, err := generic.NewThriftFileProvider(filepath.Join(config.ConfigInfo.Rpc.IdlDir, "interaction.thrift"))
	if err != nil {
		log.Fatalf("Failed to load interaction IDL: %v", err)
	}
	g, err := generic.JSONThriftGeneric(p)
	if err != nil {
		log.Fatalf("Failed to create generic: %v", err)
	}

	r, err := etcd.NewEtcdRegistry([]string{config.ConfigInfo.Etcd.Addr})
	if err != nil {
		log.Fatalf("Failed to create etcd registry: %v", err)
	}

	addr, err := net.ResolveTCPAddr("tcp", config.ConfigInfo.Rpc.InteractionAddr)
	if err != nil {
		log.Fatalf("Invalid interaction service addr: %v", err)
	}

	reader := service.NewCounterReader(redis.Store, service.DBCounterStore{})

	svr := genericserver.NewServer(
		&InteractionServiceImpl{reader: reader},
		g,
		server.WithServiceAddr(addr),
		server.WithRegistry(r),
		server.WithServerBasicInfo(&rpcinfo.EndpointBasicInfo{ServiceName: "interaction"}),
	)

	hlog.Infof("Interaction service listening on %s", addr)
	if err := svr.Run(); err != nil {
		log.Fatalf("Interaction service stopped: %v", err)
	}
}
