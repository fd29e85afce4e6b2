package marksheet

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/phoenixacademy/resultsportal/core"
)

var (
	marksTag  = "ltefield"
	marksText = "marks cannot be greater than the maximum marks"
)

// InitValidators registers the marksheet translations on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, marksTag, marksText, true)
}
