package search

import (
	"encoding/json"
	"fmt"
	"net/http"

	"taskline/client/es"
	"taskline/common"
	"taskline/domain"
	"taskline/domain/namespace"
	"taskline/indices"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

var (
	SearchTasksFunc = SearchTasks
)

type TaskSearchQuery struct {
	Text      string   `form:"text"`
	BoardID   types.ID `form:"boardId"`
	ProjectID types.ID `form:"projectId"`
	StateName string   `form:"state"`

	namespace.PageQuery
}

// SearchTasks runs a full text search over the indexed tasks of the caller's organization.
func SearchTasks(q TaskSearchQuery, sec *session.Context) ([]domain.TaskDetail, int, error) {
	filters := make([]es.H, 0, 5)
	filters = append(filters, es.H{"term": es.H{"organizationId": sec.OrganizationID}})
	if q.ProjectID != 0 {
		filters = append(filters, es.H{"term": es.H{"projectId": q.ProjectID}})
	}
	if q.BoardID != 0 {
		filters = append(filters, es.H{"term": es.H{"boardId": q.BoardID}})
	}
	if q.StateName != "" {
		filters = append(filters, es.H{"match": es.H{"state.name": es.H{"query": q.StateName, "operator": "AND"}}})
	}

	must := make([]es.H, 0, 1)
	if q.Text != "" {
		must = append(must, es.H{"multi_match": es.H{"query": q.Text, "fields": []string{"title^2", "description"}}})
	}

	from, size := q.Bounds()
	query := es.H{
		"from":  from,
		"size":  size,
		"query": es.H{"bool": es.H{"filter": filters, "must": must}},
		"sort":  []es.H{{"_score": es.H{"order": "desc"}}, {"createdAt": es.H{"order": "desc"}}},
	}
	r, err := es.SearchFunc(sec.Ctx(), indices.TaskIndexName, query)
	if err != nil {
		return nil, 0, err
	}

	tasks := make([]domain.TaskDetail, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := indices.TaskDocument{}
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, 0, fmt.Errorf("decode task document %s: %w", hit.Id, err)
		}
		tasks = append(tasks, doc.TaskDetail)
	}
	return tasks, r.Hits.Total.Value, nil
}

func RegisterSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/search", middleWares...)
	g.GET("tasks", handleSearchTasks)
}

func handleSearchTasks(c *gin.Context) {
	q := TaskSearchQuery{}
	if err := c.ShouldBindQuery(&q); err != nil {
		panic(err)
	}
	tasks, total, err := SearchTasksFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: tasks, Total: total})
}
