package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/validation"
)

type Subject string

const (
	SubjectGeneral   Subject = "general"
	SubjectProduct   Subject = "product"
	SubjectOrder     Subject = "order"
	SubjectReturns   Subject = "returns"
	SubjectWholesale Subject = "wholesale"
	SubjectTechnical Subject = "technical"
	SubjectOther     Subject = "other"
)

var subjectLabels = map[Subject]string{
	SubjectGeneral:   "General Inquiry",
	SubjectProduct:   "Product Question",
	SubjectOrder:     "Order Support",
	SubjectReturns:   "Returns & Exchanges",
	SubjectWholesale: "Wholesale Inquiry",
	SubjectTechnical: "Technical Support",
	SubjectOther:     "Other",
}

func (s Subject) Valid() bool {
	_, ok := subjectLabels[s]
	return ok
}

func (s Subject) Label() string {
	if l, ok := subjectLabels[s]; ok {
		return l
	}
	return subjectLabels[SubjectGeneral]
}

var spamPhrases = []string{"free money", "click here now", "limited time", "act now"}

var phoneJunk = regexp.MustCompile(`[^\d+]`)

type Request struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Subject Subject `json:"subject"`
	Message string  `json:"message"`
}

func (r *Request) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = phoneJunk.ReplaceAllString(r.Phone, "")
	v := &validation.Error{}

	switch n := utf8.RuneCountInString(r.Name); {
	case n == 0:
		v.Add("name", "This field is required.")
	case n > 100:
		v.Add("name", "Ensure this value has at most 100 characters.")
	}

	switch {
	case r.Email == "":
		v.Add("email", "This field is required.")
	case !validation.Email(r.Email):
		v.Add("email", "Enter a valid email address.")
	}

	if r.Phone != "" && len(r.Phone) < 7 {
		v.Add("phone", "Please enter a valid phone number.")
	}

	switch {
	case r.Subject == "":
		v.Add("subject", "This field is required.")
	case !r.Subject.Valid():
		v.Add("subject", "Select a valid choice. "+string(r.Subject)+" is not one of the available choices.")
	}

	r.Message = strings.TrimSpace(r.Message)
	switch n := utf8.RuneCountInString(r.Message); {
	case n == 0:
		v.Add("message", "This field is required.")
	case n < 10:
		v.Add("message", "Please provide a more detailed message (at least 10 characters).")
	case n > 2000:
		v.Add("message", "Ensure this value has at most 2000 characters.")
	case containsSpam(r.Message):
		v.Add("message", "Your message appears to contain spam content. Please revise.")
	}

	return v.Err()
}

func containsSpam(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range spamPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
