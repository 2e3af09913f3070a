package api

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"evalreport-go/internal/types"
)

// custom validation tags
const (
	notBlankTag  = "notblank"
	uniqueIDsTag = "unique_ids"
)

type trainingValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func newTrainingValidator() *trainingValidator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		if s, ok := fl.Field().Interface().(string); ok {
			return strings.TrimSpace(s) != ""
		}
		return true
	})
	v.RegisterStructValidation(trainingStructValidation, types.Training{})

	noop := func(ut.Translator) error { return nil }
	_ = v.RegisterTranslation(notBlankTag, trans, noop, translateCustom)
	_ = v.RegisterTranslation(uniqueIDsTag, trans, noop, translateCustom)

	return &trainingValidator{validate: v, translator: trans}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case uniqueIDsTag:
		return "question ids must be unique, repeated: " + fe.Param()
	default:
		return fe.Error()
	}
}

// trainingStructValidation rejects repeated question ids within one list.
func trainingStructValidation(sl validator.StructLevel) {
	t := sl.Current().Interface().(types.Training)
	check := func(qs []types.Question, field, name string) {
		seen := map[string]bool{}
		var dups []string
		for _, q := range qs {
			if seen[q.ID] {
				dups = append(dups, q.ID)
			}
			seen[q.ID] = true
		}
		if len(dups) > 0 {
			sl.ReportError(qs, field, name, uniqueIDsTag, strings.Join(dups, ","))
		}
	}
	check(t.FacilitatorQuestions, "facilitatorQuestions", "FacilitatorQuestions")
	check(t.ProcessQuestions, "processQuestions", "ProcessQuestions")
}

// FieldErrors maps JSON field paths to readable messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "invalid training: " + strings.Join(parts, "; ")
}

// Check validates a training and returns FieldErrors on failure.
func (tv *trainingValidator) Check(t *types.Training) error {
	err := tv.validate.Struct(t)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return badRequest("%v", err)
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		// drop the root struct name
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out[field] = fe.Translate(tv.translator)
	}
	return out
}
