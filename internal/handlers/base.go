package handlers

import (
	"errors"
	"reflect"
	"socialwall/internal/apperr"
	"socialwall/internal/middleware"
	"socialwall/internal/models"
	"socialwall/internal/utils"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// 校验错误里使用 json 字段名，方便前端定位表单项
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// currentUser returns the authenticated user set by middleware.AuthRequired.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func pagination(c *gin.Context) utils.Pagination {
	return utils.NewPagination(c.Query("page"), c.Query("resultsPerPage"))
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.FieldError{
			Type:     "field",
			Msg:      "Invalid id",
			Path:     name,
			Location: "params",
			Value:    raw,
		})
	}
	return uint(id), nil
}

// queryID parses a positive numeric query parameter.
func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.FieldError{
			Type:     "field",
			Msg:      "Invalid id",
			Path:     name,
			Location: "query",
			Value:    raw,
		})
	}
	return uint(id), nil
}

// bind decodes the request body into obj and turns validator failures into
// the field-level 400 shape.
func bind(c *gin.Context, obj any) error {
	err := c.ShouldBind(obj)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, apperr.Field(fe.Field(), validationMessage(fe), fe.Value()))
		}
		return apperr.Validation(fields...)
	}
	return apperr.Validation(apperr.Field("body", "Malformed request body", nil))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Must be a valid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

// listResponse renders the list shape shared by every paginated endpoint.
func listResponse[T any](results []T, count int64) gin.H {
	if results == nil {
		results = []T{}
	}
	return gin.H{"results": results, "count": count}
}
