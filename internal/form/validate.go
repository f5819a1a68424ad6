package form

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"funrun-registration/internal/models"
	"funrun-registration/internal/util"
)

// MaxPaymentFileSize is the largest accepted payment proof, inclusive.
const MaxPaymentFileSize = 5 * 1024 * 1024

// ValidationError is a failed form rule. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrMissingEndpoint      = &ValidationError{Field: "endpoint", Message: "Missing intake endpoint. Set GAS_URL or GOOGLE_SHEETS_SPREADSHEET_ID in your .env file."}
	ErrMissingDate          = &ValidationError{Field: "date", Message: "Please choose a date."}
	ErrMissingName          = &ValidationError{Field: "name", Message: "Please enter your name."}
	ErrMissingAge           = &ValidationError{Field: "age", Message: "Please enter your age."}
	ErrMissingAddress       = &ValidationError{Field: "address", Message: "Please enter your address."}
	ErrMissingCategory      = &ValidationError{Field: "category", Message: "Please select your Category / Section."}
	ErrMissingOtherCategory = &ValidationError{Field: "category", Message: "Please type your Category / Section in 'Other'."}
	ErrMissingContact       = &ValidationError{Field: "contactNumber", Message: "Please enter your contact number."}
	ErrContactLength        = &ValidationError{Field: "contactNumber", Message: "Contact number must be 10–15 digits."}
	ErrEmergencyPairing     = &ValidationError{Field: "emergency", Message: "Please provide BOTH Emergency Name and Emergency Contact Number (or leave both blank)."}
	ErrEmergencyLength      = &ValidationError{Field: "emergencyContactNumber", Message: "Emergency contact number must be 10–15 digits."}
	ErrMissingShirtSize     = &ValidationError{Field: "shirtSize", Message: "Please select a T-shirt size."}
	ErrMissingOtherSize     = &ValidationError{Field: "shirtSize", Message: "Please type your 'Other' shirt size."}
	ErrMissingPayment       = &ValidationError{Field: "paymentFile", Message: "Please upload your payment proof."}
	ErrPaymentTooLarge      = &ValidationError{Field: "paymentFile", Message: "File too large. Please upload under 5MB."}
)

// Record is a draft that passed every rule, normalized for the payload.
type Record struct {
	Date                   string
	Name                   string
	Age                    string
	Address                string
	Category               string
	ContactNumber          string
	EmergencyName          string
	EmergencyContactNumber string
	ShirtSize              string
	PaymentFile            *models.PaymentFile
}

// checked is a normalized draft in rule order. Fields are declared in the
// order the rules run, so the first reported failure is the first rule broken.
type checked struct {
	Endpoint               string `validate:"required"`
	Date                   string `validate:"required"`
	Name                   string `validate:"required"`
	Age                    string `validate:"required"`
	Address                string `validate:"required"`
	Category               string `validate:"required"`
	CategoryKind           string
	CategoryText           string `validate:"required_if=CategoryKind other"`
	ContactNumber          string `validate:"required,numeric,min=10,max=15"`
	EmergencyName          string `validate:"required_with=EmergencyContactNumber"`
	EmergencyContactNumber string `validate:"required_with=EmergencyName,omitempty,numeric,min=10,max=15"`
	ShirtSize              string `validate:"required"`
	SizeKind               string
	SizeText               string `validate:"required_if=SizeKind other"`
	HasPayment             bool   `validate:"required"`
	PaymentSize            int64  `validate:"lte=5242880"`
}

var validate = validator.New()

// Validate runs the rules in their fixed order and stops at the first
// failure. endpoint is the configured intake destination.
func Validate(endpoint string, d models.Draft) (Record, error) {
	c := normalize(endpoint, d)
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return Record{}, ruleFor(fields[0])
		}
		return Record{}, err
	}

	return Record{
		Date:                   c.Date,
		Name:                   c.Name,
		Age:                    c.Age,
		Address:                c.Address,
		Category:               c.Category,
		ContactNumber:          c.ContactNumber,
		EmergencyName:          c.EmergencyName,
		EmergencyContactNumber: c.EmergencyContactNumber,
		ShirtSize:              c.ShirtSize,
		PaymentFile:            d.PaymentFile,
	}, nil
}

func normalize(endpoint string, d models.Draft) checked {
	c := checked{
		Endpoint:               strings.TrimSpace(endpoint),
		Name:                   strings.TrimSpace(d.Name),
		Age:                    strings.TrimSpace(d.Age),
		Address:                strings.TrimSpace(d.Address),
		Category:               d.Category.Resolve(),
		ContactNumber:          util.DigitsOnly(d.ContactNumber),
		EmergencyName:          strings.TrimSpace(d.EmergencyName),
		EmergencyContactNumber: util.DigitsOnly(d.EmergencyContactNumber),
		ShirtSize:              d.ShirtSize.Resolve(),
	}
	if d.HasDate() {
		c.Date = d.Date.Format(models.DateLayout)
	}
	if d.Category.IsCustom() {
		c.CategoryKind = "other"
		c.CategoryText = strings.TrimSpace(d.Category.Text())
	}
	if d.ShirtSize.IsCustom() {
		c.SizeKind = "other"
		c.SizeText = strings.TrimSpace(d.ShirtSize.Text())
	}
	if d.PaymentFile != nil {
		c.HasPayment = true
		c.PaymentSize = d.PaymentFile.Size
	}
	return c
}

func ruleFor(fe validator.FieldError) *ValidationError {
	switch fe.StructField() {
	case "Endpoint":
		return ErrMissingEndpoint
	case "Date":
		return ErrMissingDate
	case "Name":
		return ErrMissingName
	case "Age":
		return ErrMissingAge
	case "Address":
		return ErrMissingAddress
	case "Category":
		return ErrMissingCategory
	case "CategoryText":
		return ErrMissingOtherCategory
	case "ContactNumber":
		if fe.Tag() == "required" {
			return ErrMissingContact
		}
		return ErrContactLength
	case "EmergencyName":
		return ErrEmergencyPairing
	case "EmergencyContactNumber":
		if fe.Tag() == "required_with" {
			return ErrEmergencyPairing
		}
		return ErrEmergencyLength
	case "ShirtSize":
		return ErrMissingShirtSize
	case "SizeText":
		return ErrMissingOtherSize
	case "HasPayment":
		return ErrMissingPayment
	default:
		return ErrPaymentTooLarge
	}
}
