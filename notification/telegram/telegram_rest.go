package telegram

import (
	"net/http"

	"taskline/session"

	"github.com/gin-gonic/gin"
)

func RegisterTelegramRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/telegram", middleWares...)
	g.POST("token", handleGenerateToken)
}

func handleGenerateToken(c *gin.Context) {
	link, err := GenerateTokenFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, link)
}
