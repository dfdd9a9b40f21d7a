package pprof

import (
	"net/http"
	_ "net/http/pprof"
	"runtime"

	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// Load 在独立端口暴露pprof，排查消费堆积和锁竞争用
func Load(addr string) {
	if addr == "" {
		addr = ":6060"
	}
	runtime.SetMutexProfileFraction(1)
	runtime.SetBlockProfileRate(1)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			hlog.Warnf("pprof server stopped: %v", err)
		}
	}()
}
