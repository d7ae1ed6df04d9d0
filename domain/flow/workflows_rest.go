package flow

import (
	"net/http"

	"taskline/bizerror"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterWorkflowsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/workflows", middleWares...)
	g.POST("", handleCreateWorkflow)
	g.PUT("", handleUpdateWorkflow)
	g.GET("", handleQueryWorkflows)
	g.GET(":id", handleDetailWorkflow)
	g.DELETE(":id", handleDeleteWorkflow)

	s := r.Group("/v1/states", middleWares...)
	s.POST("", handleCreateState)
	s.PUT("", handleUpdateState)
	s.PUT("swap", handleSwapStates)
	s.GET("", handleQueryStates)
	s.GET(":id", handleDetailState)
	s.DELETE(":id", handleDeleteState)
}

func handleCreateWorkflow(c *gin.Context) {
	creation := WorkflowCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	wf, err := CreateWorkflowFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, wf)
}

func handleUpdateWorkflow(c *gin.Context) {
	updating := WorkflowUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	wf, err := UpdateWorkflowFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, wf)
}

func handleQueryWorkflows(c *gin.Context) {
	workflows, err := QueryWorkflowsFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, workflows)
}

func handleDetailWorkflow(c *gin.Context) {
	detail, err := DetailWorkflowFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleDeleteWorkflow(c *gin.Context) {
	if err := DeleteWorkflowFunc(pathID(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleCreateState(c *gin.Context) {
	creation := StateCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	st, err := CreateStateFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, st)
}

func handleUpdateState(c *gin.Context) {
	updating := StateUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	st, err := UpdateStateFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, st)
}

func handleSwapStates(c *gin.Context) {
	swapping := StateSwapping{}
	if err := c.ShouldBindBodyWith(&swapping, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	states, err := SwapStatesFunc(&swapping, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, states)
}

type stateQuery struct {
	WorkflowID types.ID `form:"workflowId" binding:"required"`
}

func handleQueryStates(c *gin.Context) {
	query := stateQuery{}
	if err := c.ShouldBindQuery(&query); err != nil {
		panic(bizerror.BadParam(err))
	}
	states, err := QueryStatesFunc(query.WorkflowID, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, states)
}

func handleDetailState(c *gin.Context) {
	st, err := DetailStateFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, st)
}

func handleDeleteState(c *gin.Context) {
	if err := DeleteStateFunc(pathID(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(bizerror.BadParam(err))
	}
	return id
}
