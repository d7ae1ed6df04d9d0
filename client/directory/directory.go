package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskline/bizerror"
	"taskline/common"
	"taskline/infra/tracing"

	"github.com/fundwit/go-commons/types"
	"github.com/patrickmn/go-cache"
)

type User struct {
	ID        types.ID `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
}

type Organization struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

type Employee struct {
	ID           types.ID     `json:"id"`
	User         User         `json:"user"`
	Organization Organization `json:"organization"`
	Role         string       `json:"role"`
	IsActive     bool         `json:"isActive"`
}

func (e *Employee) FullName() string {
	return strings.TrimSpace(e.User.FirstName + " " + e.User.LastName)
}

type Directory interface {
	GetEmployee(ctx context.Context, employeeID types.ID) (*Employee, error)
}

// Client reads employees from the user service, keeping answers for a short while.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	cache      *cache.Cache
}

func NewClient(baseURL string, cacheTTL, timeout time.Duration) *Client {
	httpClient := tracing.NewTracingClient(nil)
	httpClient.Timeout = timeout
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		cache:      cache.New(cacheTTL, 2*cacheTTL),
	}
}

// GetEmployee returns bizerror.ErrEmployeeNotFound for unknown employees and wraps any
// other failure as bizerror.ErrUpstreamFailure with the upstream status and body kept.
func (c *Client) GetEmployee(ctx context.Context, employeeID types.ID) (*Employee, error) {
	key := employeeID.String()
	if v, found := c.cache.Get(key); found {
		e := *(v.(*Employee))
		return &e, nil
	}

	body, err := common.HttpInvokeJson(ctx, c.HTTPClient, http.MethodGet, c.BaseURL+"/v1/employees/"+key, nil, nil)
	if err != nil {
		var invokeErr *common.ErrHttpInvoke
		if errors.As(err, &invokeErr) && invokeErr.StatusCode == http.StatusNotFound {
			return nil, bizerror.ErrEmployeeNotFound.Wrap(err)
		}
		return nil, bizerror.ErrUpstreamFailure.Wrap(err)
	}

	w := wireEmployee{}
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, bizerror.ErrUpstreamFailure.Wrap(err)
	}
	e := w.employee()
	c.cache.SetDefault(key, e)

	r := *e
	return &r, nil
}

// flexID accepts ids rendered either as JSON numbers or as strings.
type flexID types.ID

func (id *flexID) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	if text == "" || text == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return err
	}
	*id = flexID(v)
	return nil
}

type wireEmployee struct {
	ID   flexID `json:"id"`
	User struct {
		ID        flexID `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
	Organization struct {
		ID   flexID `json:"id"`
		Name string `json:"name"`
	} `json:"organization"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

func (w *wireEmployee) employee() *Employee {
	return &Employee{
		ID:           types.ID(w.ID),
		User:         User{ID: types.ID(w.User.ID), FirstName: w.User.FirstName, LastName: w.User.LastName},
		Organization: Organization{ID: types.ID(w.Organization.ID), Name: w.Organization.Name},
		Role:         w.Role,
		IsActive:     w.IsActive,
	}
}
