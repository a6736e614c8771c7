package school

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be one of MONDAY, TUESDAY, WEDNESDAY, THURSDAY, FRIDAY"

	sexTag  = "sex"
	sexText = "must be MALE or FEMALE"

	bloodTypeTag  = "bloodtype"
	bloodTypeText = "invalid blood type"

	bloodTypes = map[string]bool{
		"A+": true, "A-": true, "B+": true, "B-": true,
		"AB+": true, "AB-": true, "O+": true, "O-": true,
	}

	examOrAssignmentTag  = "examorassignment"
	examOrAssignmentText = "either exam or assignment must be selected"

	notBothTag  = "notboth"
	notBothText = "cannot select both exam and assignment"
)

// InitValidators registers the school validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(sexTag, sexValidation)
	core.RegisterCustomTranslation(validate, translator, sexTag, sexText)

	_ = validate.RegisterValidation(bloodTypeTag, bloodTypeValidation)
	core.RegisterCustomTranslation(validate, translator, bloodTypeTag, bloodTypeText)

	validate.RegisterStructValidation(resultStructValidation, ResultInput{})
	core.RegisterCustomTranslation(validate, translator, examOrAssignmentTag, examOrAssignmentText)
	core.RegisterCustomTranslation(validate, translator, notBothTag, notBothText)
}

func weekdayValidation(fl validator.FieldLevel) bool {
	return Day(strings.ToUpper(fl.Field().String())).IsValid()
}

func sexValidation(fl validator.FieldLevel) bool {
	_, ok := ParseSex(fl.Field().String())
	return ok
}

func bloodTypeValidation(fl validator.FieldLevel) bool {
	return bloodTypes[strings.ToUpper(fl.Field().String())]
}

// resultStructValidation: a Result references exactly one of exam or assignment.
func resultStructValidation(sl validator.StructLevel) {
	in := sl.Current().Interface().(ResultInput)
	switch {
	case in.ExamID == 0 && in.AssignmentID == 0:
		sl.ReportError(in.ExamID, "examId", "ExamID", examOrAssignmentTag, "")
	case in.ExamID != 0 && in.AssignmentID != 0:
		sl.ReportError(in.AssignmentID, "assignmentId", "AssignmentID", notBothTag, "")
	}
}
