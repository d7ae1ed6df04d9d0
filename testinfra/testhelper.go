package testinfra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildCaller builds the caller context of an employee.
func BuildCaller(uid, organizationID, employeeID types.ID, role string) *session.Context {
	return &session.Context{
		Token:          "test-token",
		Identity:       session.Identity{ID: uid, Name: "user" + uid.String()},
		OrganizationID: organizationID,
		EmployeeID:     employeeID,
		Role:           role,
		Perms:          session.Permissions{},
		Context:        context.Background(),
	}
}

// InjectCaller replaces the bearer filter in handler tests.
func InjectCaller(caller *session.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.InjectSessionIntoGinContext(c, caller)
		c.Next()
	}
}

func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp
}
