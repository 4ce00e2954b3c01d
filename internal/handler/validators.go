package handler

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// versionPattern accepts release and branch names such as 1.3.8 or 1.4-feature
var versionPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._+-]{0,15}$`)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the tracker's binding tags on gin's validator.
// Field errors are reported under their json names.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("binding validator is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(jsonName)
		registerErr = v.RegisterValidation("strversion", func(fl validator.FieldLevel) bool {
			return versionPattern.MatchString(fl.Field().String())
		})
	})
	return registerErr
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
