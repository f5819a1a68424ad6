package tgbot

import (
	"errors"
	"strings"
	"time"

	"funrun-registration/internal/form"
	"funrun-registration/internal/models"
)

// step is the question a chat is currently answering.
type step int

const (
	stepIdle step = iota
	stepDate
	stepName
	stepAge
	stepAddress
	stepCategory
	stepOtherCategory
	stepContact
	stepEmergencyName
	stepEmergencyContact
	stepShirtSize
	stepOtherSize
	stepPayment
	stepReview
)

// skipWord leaves an optional field blank.
const skipWord = "-"

var prompts = map[step]string{
	stepDate:             "Date (MM/DD/YYYY)?",
	stepName:             "Your name?",
	stepAge:              "Your age?",
	stepAddress:          "Your address?",
	stepCategory:         "Category / Section?",
	stepOtherCategory:    "Type your category (e.g. School Club, BFP, etc.):",
	stepContact:          "Contact number (numbers only, 10–15 digits)?",
	stepEmergencyName:    "In case of emergency: name? Send \"-\" to skip.",
	stepEmergencyContact: "In case of emergency: contact number? Send \"-\" to skip.",
	stepShirtSize:        "T-shirt size?",
	stepOtherSize:        "Type your shirt size:",
	stepPayment:          "Upload your payment proof as a photo or a file (max 5MB).",
}

func prompt(st step) string { return prompts[st] }

// followUp steps only make sense right after the step before them.
func followUp(st step) bool {
	return st == stepOtherCategory || st == stepEmergencyContact || st == stepOtherSize
}

// answer applies a text reply given at st and returns the next step. A
// non-empty hint means the reply was not usable and st is asked again.
func answer(s *form.Store, st step, text string) (next step, hint string) {
	text = strings.TrimSpace(text)
	switch st {
	case stepDate:
		t, ok := parseDate(text, time.Now())
		if !ok {
			return st, "Please send the date as MM/DD/YYYY."
		}
		s.SetDate(t)
		return stepName, ""
	case stepName:
		s.SetName(text)
		return stepAge, ""
	case stepAge:
		s.SetAge(text)
		return stepAddress, ""
	case stepAddress:
		s.SetAddress(text)
		return stepCategory, ""
	case stepCategory:
		if strings.EqualFold(text, models.SectionOtherLabel) {
			s.SetCategory(models.Custom[models.Section](""))
			return stepOtherCategory, ""
		}
		c, ok := models.ParseSection(text, "")
		if !ok || !c.IsSet() {
			return st, "Please pick a section from the buttons."
		}
		s.SetCategory(c)
		return stepContact, ""
	case stepOtherCategory:
		s.SetCategory(models.Custom[models.Section](text))
		return stepContact, ""
	case stepContact:
		s.SetContactNumber(text)
		return stepEmergencyName, ""
	case stepEmergencyName:
		if text == skipWord {
			s.SetEmergencyName("")
			s.SetEmergencyContactNumber("")
			return stepShirtSize, ""
		}
		s.SetEmergencyName(text)
		return stepEmergencyContact, ""
	case stepEmergencyContact:
		if text == skipWord {
			text = ""
		}
		s.SetEmergencyContactNumber(text)
		return stepShirtSize, ""
	case stepShirtSize:
		if strings.EqualFold(text, models.SizeOtherLabel) {
			s.SetShirtSize(models.Custom[models.Size](""))
			return stepOtherSize, ""
		}
		z, ok := models.ParseSize(text, "")
		if !ok || !z.IsSet() {
			return st, "Please pick a size from the buttons."
		}
		s.SetShirtSize(z)
		return stepPayment, ""
	case stepOtherSize:
		s.SetShirtSize(models.Custom[models.Size](text))
		return stepPayment, ""
	case stepPayment:
		return st, "Please send the payment proof as a photo or a file."
	default:
		return st, ""
	}
}

// stepFor maps a validation failure back to the question that fixes it.
func stepFor(err error) step {
	var ve *form.ValidationError
	if !errors.As(err, &ve) {
		return stepIdle
	}
	switch ve.Field {
	case "date":
		return stepDate
	case "name":
		return stepName
	case "age":
		return stepAge
	case "address":
		return stepAddress
	case "category":
		if ve == form.ErrMissingOtherCategory {
			return stepOtherCategory
		}
		return stepCategory
	case "contactNumber":
		return stepContact
	case "emergency":
		return stepEmergencyName
	case "emergencyContactNumber":
		return stepEmergencyContact
	case "shirtSize":
		if ve == form.ErrMissingOtherSize {
			return stepOtherSize
		}
		return stepShirtSize
	case "paymentFile":
		return stepPayment
	default:
		return stepIdle
	}
}

func parseDate(text string, now time.Time) (time.Time, bool) {
	if strings.EqualFold(text, "today") {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	}
	for _, layout := range []string{models.DateLayout, "2006-01-02", "1/2/2006"} {
		if t, err := time.ParseInLocation(layout, text, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
