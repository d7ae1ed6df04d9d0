package notification_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskline/bizerror"
	"taskline/event"
	"taskline/notification"
	"taskline/session"
	"taskline/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestNotificationsRestAPI(t *testing.T) {
	RegisterTestingT(t)

	caller := testinfra.BuildCaller(2, 100, 20, session.RoleEmployee)
	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	notification.RegisterNotificationsRestAPI(router, testinfra.InjectCaller(caller))

	t.Run("should ingest posted events", func(t *testing.T) {
		var got *event.TaskEvent
		notification.IngestFunc = func(ctx context.Context, ev *event.TaskEvent) ([]notification.Notification, error) {
			got = ev
			return []notification.Notification{{ID: 1, UserID: 2, Status: notification.StatusPending}}, nil
		}
		defer func() { notification.IngestFunc = notification.Ingest }()

		req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(
			`{"type":"STATE_CHANGED","taskId":"5","ownerEmployeeId":"10","assigneeEmployeeIds":["20"],"fromState":"TODO","toState":"DONE"}`))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(body).To(ContainSubstring(`"status":"PENDING"`))
		Expect(got.TaskID).To(Equal(types.ID(5)))
		Expect(got.Recipients()).To(Equal([]types.ID{10, 20}))
	})

	t.Run("should accept events that notify nobody without storing them", func(t *testing.T) {
		called := false
		notification.IngestFunc = func(ctx context.Context, ev *event.TaskEvent) ([]notification.Notification, error) {
			called = true
			return nil, nil
		}
		defer func() { notification.IngestFunc = notification.Ingest }()

		req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(
			`{"type":"CREATED","taskId":"5","ownerEmployeeId":"10"}`))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusAccepted))
		Expect(body).To(MatchJSON(`[]`))
		Expect(called).To(BeFalse())
	})

	t.Run("should reject malformed events", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/notifications", bytes.NewBufferString(`{"taskId":`))
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	t.Run("should list notifications of the caller", func(t *testing.T) {
		var testDatabase *testinfra.TestDatabase
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		gdb := testDatabase.DS.GormDB(context.Background())
		Expect(gdb.Create(&notification.Notification{ID: 1, UserID: 2, Status: notification.StatusSent}).Error).To(BeNil())
		Expect(gdb.Create(&notification.Notification{ID: 2, UserID: 2, Status: notification.StatusPending}).Error).To(BeNil())
		Expect(gdb.Create(&notification.Notification{ID: 3, UserID: 9, Status: notification.StatusPending}).Error).To(BeNil())

		req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"total":2`))

		req = httptest.NewRequest(http.MethodGet, "/v1/notifications?status=PENDING", nil)
		status, body, _ = testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring(`"total":1`))
		Expect(body).To(ContainSubstring(`"id":"2"`))
	})
}
