package account

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/phoenixacademy/resultsportal/core"
)

var (
	// password policy
	PwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must be at least %d characters", PwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to the account details"

	pwdConfirmTag  = "eqfield"
	pwdConfirmText = "passwords do not match"
)

// InitValidators registers the account validators on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(accountStructValidation, NewAccount{}, UpdateAccount{}, ResetPassword{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(validate, translator, pwdConfirmTag, pwdConfirmText, true)
}

// accountStructValidation does struct level validation on NewAccount and UpdateAccount structs.
func accountStructValidation(sl validator.StructLevel) {
	switch acc := sl.Current().Interface().(type) {
	case NewAccount:
		if acc.Password != "" {
			ValidatePassword(sl, "password", acc.Password, acc.DisplayName, acc.Email)
		}
	case UpdateAccount:
		if acc.Password != "" {
			ValidatePassword(sl, "password", acc.Password, acc.DisplayName, acc.Email)
		}
	case ResetPassword:
		if acc.Password != "" {
			ValidatePassword(sl, "password", acc.Password)
		}
	}
}

// ValidatePassword applies the password policy to `pwd` and reports errors on `field`:
// - minLen: 6
// - no whitespace
// - no similarity with the given account attributes
func ValidatePassword(sl validator.StructLevel, field, pwd string, attrs ...string) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, field, field, tag, "")
	}

	if len([]rune(pwd)) < PwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if passwordSimilarity(lpwd, strings.ToLower(attr)) >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}

func passwordSimilarity(pwd, attr string) float64 {
	if attr == "" {
		return 0
	}
	return difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, "")).QuickRatio()
}
