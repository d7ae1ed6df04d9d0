package notification

import (
	"net/http"

	"taskline/bizerror"
	"taskline/common"
	"taskline/event"
	"taskline/persistence"
	"taskline/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var QueryNotificationsFunc = QueryNotifications

type NotificationQuery struct {
	Status Status `form:"status"`
	Page   int    `form:"page"`
	Size   int    `form:"size"`
}

func RegisterNotificationsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/notifications", middleWares...)
	g.POST("", handleIngest)
	g.GET("", handleQuery)
}

// QueryNotifications lists the notifications addressed to the caller, newest first.
func QueryNotifications(q NotificationQuery, sec *session.Context) ([]Notification, int, error) {
	size := q.Size
	if size <= 0 || size > 100 {
		size = 20
	}
	page := q.Page
	if page < 0 {
		page = 0
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx()).Where("user_id = ?", sec.Identity.ID)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}

	var total int
	if err := db.Model(&Notification{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	records := []Notification{}
	if err := db.Order("created_at DESC, id DESC").Offset(page * size).Limit(size).Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func handleIngest(c *gin.Context) {
	ev := event.TaskEvent{}
	if err := c.ShouldBindBodyWith(&ev, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	if !ev.Notifiable() {
		c.JSON(http.StatusAccepted, []Notification{})
		return
	}
	records, err := IngestFunc(session.ExtractSessionFromGinContext(c).Ctx(), &ev)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, records)
}

func handleQuery(c *gin.Context) {
	q := NotificationQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(bizerror.BadParam(err))
	}
	records, total, err := QueryNotificationsFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: records, Total: total})
}
