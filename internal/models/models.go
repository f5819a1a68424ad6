package models

import (
	"bytes"
	"io"
	"strings"
	"time"
)

// DateLayout is how the chosen event date travels in the payload (MM/DD/YYYY).
const DateLayout = "01/02/2006"

// DefaultMIMEType is used when the file chooser reports no type.
const DefaultMIMEType = "application/octet-stream"

// OtherPrefix marks a free-text choice in its resolved form.
const OtherPrefix = "OTHER"

type Section string

const (
	SectionMEC         Section = "MEC"
	SectionLGU         Section = "LGU"
	SectionTownCenter  Section = "Town Center"
	SectionZumbanatics Section = "Zumbanatics"
	SectionBarangay    Section = "Barangay"
	SectionDepEd       Section = "DepEd"
	SectionPNP         Section = "PNP"
)

// SectionOtherLabel is the option that switches the category to free text.
const SectionOtherLabel = "Other"

// Sections lists the known categories in display order ("Other" excluded).
var Sections = []Section{
	SectionMEC, SectionLGU, SectionTownCenter, SectionZumbanatics,
	SectionBarangay, SectionDepEd, SectionPNP,
}

type Size string

const (
	SizeXS  Size = "XS"
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

// SizeOtherLabel is the option that switches the shirt size to free text.
const SizeOtherLabel = "OTHER"

// Sizes lists the standard shirt sizes in display order ("OTHER" excluded).
var Sizes = []Size{SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL}

// Choice is either unset, one of the known values, or free text typed under
// the "Other" option. It is only flattened to a string by Resolve.
type Choice[T ~string] struct {
	set    bool
	custom bool
	value  T
	text   string
}

func Known[T ~string](v T) Choice[T] {
	return Choice[T]{set: true, value: v}
}

func Custom[T ~string](text string) Choice[T] {
	return Choice[T]{set: true, custom: true, text: text}
}

func (c Choice[T]) IsSet() bool    { return c.set }
func (c Choice[T]) IsCustom() bool { return c.set && c.custom }
func (c Choice[T]) Value() T       { return c.value }
func (c Choice[T]) Text() string   { return c.text }

// Resolve returns the canonical value, or "OTHER: <text>" for free text.
func (c Choice[T]) Resolve() string {
	if !c.set {
		return ""
	}
	if !c.custom {
		return string(c.value)
	}
	if t := strings.TrimSpace(c.text); t != "" {
		return OtherPrefix + ": " + t
	}
	return OtherPrefix
}

type Category = Choice[Section]

type ShirtSize = Choice[Size]

// ParseSection maps a submitted option label to a category. An empty label
// is an unset category; "Other" yields a free-text category carrying text.
func ParseSection(label, text string) (Category, bool) {
	label = strings.TrimSpace(label)
	switch label {
	case "":
		return Category{}, true
	case SectionOtherLabel:
		return Custom[Section](text), true
	}
	for _, s := range Sections {
		if string(s) == label {
			return Known(s), true
		}
	}
	return Category{}, false
}

// ParseSize maps a submitted option label to a shirt size, like ParseSection.
func ParseSize(label, text string) (ShirtSize, bool) {
	label = strings.TrimSpace(label)
	switch label {
	case "":
		return ShirtSize{}, true
	case SizeOtherLabel:
		return Custom[Size](text), true
	}
	for _, s := range Sizes {
		if strings.EqualFold(string(s), label) {
			return Known(s), true
		}
	}
	return ShirtSize{}, false
}

// Blob is the byte source behind a chosen file.
type Blob interface {
	Open() (io.ReadCloser, error)
}

// Bytes is an in-memory blob.
type Bytes []byte

func (b Bytes) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

type PaymentFile struct {
	Name     string
	MIMEType string
	Size     int64
	Source   Blob
}

// ContentType returns the reported MIME type or the octet-stream fallback.
func (f *PaymentFile) ContentType() string {
	if f == nil || strings.TrimSpace(f.MIMEType) == "" {
		return DefaultMIMEType
	}
	return f.MIMEType
}

// Draft is the in-progress registration of one form session.
type Draft struct {
	Date                   time.Time
	Name                   string
	Age                    string
	Address                string
	Category               Category
	ContactNumber          string
	EmergencyName          string
	EmergencyContactNumber string
	ShirtSize              ShirtSize
	PaymentFile            *PaymentFile
}

func (d Draft) HasDate() bool { return !d.Date.IsZero() }

// IsEmpty reports whether every field still holds its initial value.
func (d Draft) IsEmpty() bool {
	return d == Draft{}
}

type PaymentAttachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Base64   string `json:"base64"`
}

// Payload is the JSON document sent to the intake endpoint.
type Payload struct {
	Secret                 string            `json:"secret"`
	Date                   string            `json:"date"`
	Name                   string            `json:"name"`
	Age                    string            `json:"age"`
	Address                string            `json:"address"`
	Category               string            `json:"category"`
	ContactNumber          string            `json:"contactNumber"`
	EmergencyName          string            `json:"emergencyName"`
	EmergencyContactNumber string            `json:"emergencyContactNumber"`
	ShirtSize              string            `json:"shirtSize"`
	Payment                PaymentAttachment `json:"payment"`
}
