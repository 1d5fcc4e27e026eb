//go:build debug

package sing

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/sagernet/sing-stream/common/log"
)

func init() {
	logger := log.NewLogger("debug")
	go func() {
		err := http.ListenAndServe("127.0.0.1:8964", nil)
		if err != nil {
			logger.Warn("pprof server: ", err)
		}
	}()
}
