package servehttp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var ShutdownTimeout = 3 * time.Second

// Serve runs the engine on addr until SIGINT or SIGTERM, then shuts the http server down
// gracefully and runs the stop hooks in order.
func Serve(addr string, engine *gin.Engine, stopHooks ...func()) error {
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 send syscall.SIGINT
	// kill -9 send syscall.SIGKILL, can't be caught
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	return serveUntil(addr, engine, quit, stopHooks...)
}

func serveUntil(addr string, engine *gin.Engine, quit <-chan os.Signal, stopHooks ...func()) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	failed := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()
	logrus.Infof("http server listening on %s", addr)

	select {
	case err := <-failed:
		runHooks(stopHooks)
		return err
	case <-quit:
	}
	logrus.Infof("[QUIT] shutdown signal has been received, the service will exit in %s.", ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// graceful shutdown http.Server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("[QUIT] http server shutdown failed: %v", err)
	} else {
		logrus.Info("[QUIT] http server is shutdown gracefully, new request will be rejected.")
	}

	runHooks(stopHooks)
	logrus.Info("[QUIT] service exiting")
	return nil
}

func runHooks(hooks []func()) {
	for _, hook := range hooks {
		hook()
	}
}
