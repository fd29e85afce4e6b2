package student

import (
	"regexp"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/phoenixacademy/resultsportal/core"
	"github.com/phoenixacademy/resultsportal/core/account"
)

var (
	streamTag  = "stream"
	streamText = "stream must be one of JEE, NEET, MHT-CET or Regular Batch"

	batchTag   = "batch"
	batchText  = "batch must be formatted as YYYY-YYYY with the end year after the start year"
	batchRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

	pwdWithUIDTag  = "pwdwithuid"
	pwdWithUIDText = "password must be empty when linking an existing account (uid)"
)

// InitValidators registers the student validators on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(streamTag, streamValidation)
	core.RegisterCustomTranslation(validate, translator, streamTag, streamText)

	_ = validate.RegisterValidation(batchTag, batchValidation)
	core.RegisterCustomTranslation(validate, translator, batchTag, batchText)

	validate.RegisterStructValidation(newStudentStructValidation, NewStudent{})
	core.RegisterCustomTranslation(validate, translator, pwdWithUIDTag, pwdWithUIDText)
}

// Custom Validators

func streamValidation(fl validator.FieldLevel) bool {
	return IsStream(fl.Field().String())
}

func IsStream(s string) bool {
	for _, stream := range Streams {
		if s == stream {
			return true
		}
	}
	return false
}

// batchValidation checks the "YYYY-YYYY" format and that the end year comes after the start year.
func batchValidation(fl validator.FieldLevel) bool {
	m := batchRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end > start
}

// newStudentStructValidation applies the password policy when an account is to be created.
// A password cannot come with the UID of an existing account.
func newStudentStructValidation(sl validator.StructLevel) {
	ns, ok := sl.Current().Interface().(NewStudent)
	if !ok || ns.Password == "" {
		return
	}
	if ns.UID != "" {
		sl.ReportError(ns.Password, "password", "password", pwdWithUIDTag, "")
		return
	}
	account.ValidatePassword(sl, "password", ns.Password, ns.StudentName, ns.Email, ns.RollNumber)
}
