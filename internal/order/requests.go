package order

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/validation"
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// CheckoutRequest carries the customer details collected at checkout.
type CheckoutRequest struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
}

// Normalize trims every field and strips spaces and dashes from the phone number.
func (r *CheckoutRequest) Normalize() {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerPhone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(r.CustomerPhone))
	r.DeliveryAddress = strings.TrimSpace(r.DeliveryAddress)
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *CheckoutRequest) Validate() error {
	r.Normalize()
	v := &validation.Error{}

	switch n := utf8.RuneCountInString(r.CustomerName); {
	case n == 0:
		v.Add("customer_name", "This field is required.")
	case n < 2:
		v.Add("customer_name", "Please enter a valid full name.")
	case n > 100:
		v.Add("customer_name", "Ensure this value has at most 100 characters.")
	}

	switch {
	case r.CustomerEmail == "":
		v.Add("customer_email", "This field is required.")
	case !validation.Email(r.CustomerEmail):
		v.Add("customer_email", "Enter a valid email address.")
	}

	switch {
	case r.CustomerPhone == "":
		v.Add("customer_phone", "This field is required.")
	case !phonePattern.MatchString(r.CustomerPhone):
		v.Add("customer_phone", "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed.")
	}

	switch {
	case r.DeliveryAddress == "":
		v.Add("delivery_address", "This field is required.")
	case utf8.RuneCountInString(r.DeliveryAddress) < 10:
		v.Add("delivery_address", "Please enter a complete delivery address.")
	}

	return v.Err()
}
