package servehttp

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).To(BeNil())
	defer l.Close()
	return l.Addr().String()
}

func TestServeUntil(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should serve until quit and then run stop hooks in order", func(t *testing.T) {
		engine := gin.New()
		engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		addr := freeAddr()

		quit := make(chan os.Signal, 1)
		var stopped []string
		done := make(chan error, 1)
		go func() {
			done <- serveUntil(addr, engine, quit,
				func() { stopped = append(stopped, "bot") },
				func() { stopped = append(stopped, "db") })
		}()

		Eventually(func() int {
			resp, err := http.Get(fmt.Sprintf("http://%s/ping", addr))
			if err != nil {
				return 0
			}
			defer resp.Body.Close()
			return resp.StatusCode
		}, 2*time.Second, 20*time.Millisecond).Should(Equal(http.StatusOK))

		quit <- syscall.SIGTERM
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		Expect(stopped).To(Equal([]string{"bot", "db"}))
	})

	t.Run("should fail when the address is taken", func(t *testing.T) {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(BeNil())
		defer l.Close()

		hooked := false
		err = serveUntil(l.Addr().String(), gin.New(), make(chan os.Signal), func() { hooked = true })
		Expect(err).ToNot(BeNil())
		Expect(hooked).To(BeTrue())
	})
}
