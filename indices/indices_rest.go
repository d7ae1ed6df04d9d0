package indices

import (
	"net/http"

	"taskline/session"

	"github.com/gin-gonic/gin"
)

var (
	PathIndexRequests = "/v1/index-requests"
)

type IndexRequest struct {
	Recreate bool `json:"recreate"`
}

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathIndexRequests, middleWares...)
	g.POST("", handleIndexRequest)
}

func handleIndexRequest(c *gin.Context) {
	req := IndexRequest{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			panic(err)
		}
	}
	success, err := ScheduleNewSyncRunFunc(req.Recreate, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"result": success})
}
