package workrest

import (
	"net/http"

	"taskline/bizerror"
	"taskline/common"
	"taskline/domain/namespace"
	"taskline/domain/work"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathTasks = "/v1/tasks"
)

func RegisterTasksRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTasks, middleWares...)
	g.POST("", handleCreate)
	g.PUT("", handleUpdate)
	g.GET("", handleQuery)
	g.GET("my", handleMyTasks)
	g.GET(":id", handleDetail)
	g.DELETE(":id", handleDelete)
	g.GET(":id/actions", handleListActions)
	g.GET(":id/transitions", handleAvailableTransitions)

	g.PUT("state", handleChangeState)
	g.POST("assign", handleAssign)
	g.POST("unassign", handleUnassign)
}

func handleCreate(c *gin.Context) {
	creation := work.TaskCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	detail, err := work.CreateTaskFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func handleUpdate(c *gin.Context) {
	updating := work.TaskUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	detail, err := work.UpdateTaskFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleQuery(c *gin.Context) {
	q := work.TaskQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(bizerror.BadParam(err))
	}
	tasks, total, err := work.QueryTasksFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: tasks, Total: total})
}

func handleMyTasks(c *gin.Context) {
	q := namespace.PageQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(bizerror.BadParam(err))
	}
	tasks, total, err := work.MyTasksFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: tasks, Total: total})
}

func handleDetail(c *gin.Context) {
	detail, err := work.DetailTaskFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleDelete(c *gin.Context) {
	if err := work.DeleteTaskFunc(pathID(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleListActions(c *gin.Context) {
	actions, err := work.ListActionsFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, actions)
}

func handleAvailableTransitions(c *gin.Context) {
	states, err := work.AvailableTransitionsFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, states)
}

func handleChangeState(c *gin.Context) {
	changing := work.StateChanging{}
	if err := c.ShouldBindBodyWith(&changing, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	detail, err := work.ChangeStateFunc(&changing, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleAssign(c *gin.Context) {
	assigning := work.Assigning{}
	if err := c.ShouldBindBodyWith(&assigning, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	detail, err := work.AssignTaskFunc(&assigning, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUnassign(c *gin.Context) {
	assigning := work.Assigning{}
	if err := c.ShouldBindBodyWith(&assigning, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	detail, err := work.RemoveAssigneeFunc(&assigning, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func pathID(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(bizerror.BadParam(err))
	}
	return id
}
