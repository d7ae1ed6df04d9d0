package common_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	"taskline/common"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("HttpInvokeJson", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/fail" {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"message":"down"}`))
				return
			}
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"echo":` + string(body) + `,"auth":"` + r.Header.Get("Authorization") + `"}`))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should return the body of success response", func() {
		body, err := common.HttpInvokeJson(context.Background(), server.Client(), http.MethodPost, server.URL+"/ok",
			http.Header{"Authorization": []string{"Bearer x"}}, []byte(`1`))
		Expect(err).To(BeNil())
		Expect(string(body)).To(MatchJSON(`{"echo":1,"auth":"Bearer x"}`))
	})

	It("should wrap non-2xx response as ErrHttpInvoke", func() {
		body, err := common.HttpInvokeJson(context.Background(), server.Client(), http.MethodGet, server.URL+"/fail", nil, nil)
		Expect(body).To(BeNil())

		var invokeErr *common.ErrHttpInvoke
		Expect(errors.As(err, &invokeErr)).To(BeTrue())
		Expect(invokeErr.StatusCode).To(Equal(http.StatusBadGateway))
		Expect(invokeErr.RespBody).To(Equal(`{"message":"down"}`))
		Expect(invokeErr.Error()).To(ContainSubstring("502"))
	})

	It("should keep the transport error as cause", func() {
		server.Close()
		_, err := common.HttpInvokeJson(context.Background(), http.DefaultClient, http.MethodGet, server.URL+"/ok", nil, nil)
		var invokeErr *common.ErrHttpInvoke
		Expect(errors.As(err, &invokeErr)).To(BeTrue())
		Expect(invokeErr.Cause).ToNot(BeNil())
	})
})
