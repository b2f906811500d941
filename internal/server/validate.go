package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nerdneilsfield/inkwash-card/internal/datauri"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerValidators adds the "imagedata" tag to gin's validator: the field
// must be a base64 image data URI.
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		registerErr = v.RegisterValidation("imagedata", func(fl validator.FieldLevel) bool {
			return datauri.IsImage(fl.Field().String())
		})
	})
	return registerErr
}

// bindErrorDetails turns validator errors into "field: tag" strings.
func bindErrorDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			details = append(details, fmt.Sprintf("%s: %s=%s", lowerFirst(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			details = append(details, fmt.Sprintf("%s: %s", lowerFirst(fe.Field()), fe.Tag()))
		}
	}
	return details
}

// emptyBody reports a missing request body, which is treated like "{}".
func emptyBody(err error) bool {
	return errors.Is(err, io.EOF)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
