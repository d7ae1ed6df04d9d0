package bizerror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"taskline/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

func ErrorHandling() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handle(c)
		c.Next()
	}
}

func handle(c *gin.Context) {
	if ret := recover(); ret != nil {
		err, ok := ret.(error)
		if !ok {
			err = fmt.Errorf("%v", ret)
		}
		var bizErr BizError
		if !errors.As(err, &bizErr) {
			logrus.WithField("path", c.Request.URL.Path).Errorf("panic recovered: %v\n%s", err, debug.Stack())
		}
		HandleError(c, err)
	} else {
		if err := c.Errors.Last(); err != nil {
			HandleError(c, err)
		}
	}
}

func HandleError(c *gin.Context, err error) {
	genericErr := err
	var ginErr *gin.Error
	if errors.As(err, &ginErr) {
		genericErr = ginErr.Err
	}

	status, body := Translate(genericErr)
	entry := logrus.WithFields(logrus.Fields{"path": c.Request.URL.Path, "status": status, "code": body.Code})
	if status >= http.StatusInternalServerError {
		entry.Error(genericErr)
	} else {
		entry.Info(genericErr)
	}

	c.JSON(status, body)
	c.Abort()
}

// Translate maps an error to its response status and body. Unknown errors become
// a generic internal error without details.
func Translate(err error) (int, *common.ErrorBody) {
	var bizErr BizError
	if errors.As(err, &bizErr) {
		respond := bizErr.Respond()
		return respond.Status, &common.ErrorBody{Code: respond.Code, Message: respond.Message, Data: respond.Data}
	}

	// bad request: io.EOF (no body).
	if errors.Is(err, io.EOF) {
		return http.StatusBadRequest, &common.ErrorBody{Code: ErrBadParam.Code, Message: "body not found"}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: ErrBadParam.Code, Message: "invalid body format", Data: syntaxErr.Error()}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: ErrBadParam.Code, Message: "invalid body format", Data: typeErr.Error()}
	}
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, &common.ErrorBody{Code: ErrBadParam.Code, Message: "validation failed", Data: validationErr.Error()}
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, &common.ErrorBody{Code: ErrNotFound.Code, Message: ErrNotFound.Message}
	}

	return http.StatusInternalServerError, &common.ErrorBody{Code: ErrInternal.Code, Message: ErrInternal.Message}
}
