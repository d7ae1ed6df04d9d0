package namespace

import (
	"net/http"

	"taskline/bizerror"
	"taskline/common"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

func RegisterProjectsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/projects", middleWares...)
	g.POST("", handleCreateProject)
	g.PUT("", handleUpdateProject)
	g.GET("", handleQueryProjects)
	g.GET(":id", handleDetailProject)
	g.DELETE(":id", handleDeleteProject)

	b := r.Group("/v1/boards", middleWares...)
	b.POST("", handleCreateBoard)
	b.PUT("", handleUpdateBoard)
	b.GET("", handleQueryBoards)
	b.GET(":id", handleDetailBoard)
	b.DELETE(":id", handleDeleteBoard)
}

func handleCreateProject(c *gin.Context) {
	creation := ProjectCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	p, err := CreateProjectFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, p)
}

func handleUpdateProject(c *gin.Context) {
	updating := ProjectUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	p, err := UpdateProjectFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, p)
}

func handleQueryProjects(c *gin.Context) {
	q := PageQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(bizerror.BadParam(err))
	}
	projects, total, err := QueryProjectsFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: projects, Total: total})
}

func handleDetailProject(c *gin.Context) {
	p, err := DetailProjectFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, p)
}

func handleDeleteProject(c *gin.Context) {
	if err := DeleteProjectFunc(pathID(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleCreateBoard(c *gin.Context) {
	creation := BoardCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	b, err := CreateBoardFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, b)
}

func handleUpdateBoard(c *gin.Context) {
	updating := BoardUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(bizerror.BadParam(err))
	}
	b, err := UpdateBoardFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, b)
}

func handleQueryBoards(c *gin.Context) {
	q := BoardQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(bizerror.BadParam(err))
	}
	boards, total, err := QueryBoardsFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: boards, Total: total})
}

func handleDetailBoard(c *gin.Context) {
	b, err := DetailBoardFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, b)
}

func handleDeleteBoard(c *gin.Context) {
	if err := DeleteBoardFunc(pathID(c), session.ExtractSessionFromGinContext(c)); err != nil {
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
