package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskline/bizerror"
	"taskline/common"
	"taskline/event"
	"taskline/infra/tracing"
)

var HandlerIdentifier = "notificationClient"

// Client forwards task events to a remote notification service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	httpClient := tracing.NewTracingClient(nil)
	httpClient.Timeout = timeout
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: httpClient}
}

func (c *Client) PostEvent(ctx context.Context, ev *event.TaskEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := common.HttpInvokeJson(ctx, c.HTTPClient, http.MethodPost, c.BaseURL+"/v1/notifications", nil, body); err != nil {
		return bizerror.ErrUpstreamFailure.Wrap(err)
	}
	return nil
}

// HandleEvent is an event.EventHandler. Events nobody should hear about are skipped.
func (c *Client) HandleEvent(ctx context.Context, ev *event.TaskEvent) *event.EventHandleResult {
	if !ev.Notifiable() {
		return nil
	}
	if err := c.PostEvent(ctx, ev); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("post event of task %d: %v", ev.TaskID, err),
			HandlerIdentifier: HandlerIdentifier,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: HandlerIdentifier}
}
