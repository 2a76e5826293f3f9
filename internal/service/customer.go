package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\- ]{3,19}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the custom rules used by customer input.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

type customerInput struct {
	Name  string `validate:"required,min=2,max=100"`
	Email string `validate:"required,email,max=254"`
	Phone string `validate:"required,phone"`
}

// Customers stores customer PII through Records. The email is the record id;
// email and phone are sensitive, the name is not.
type Customers struct {
	records *Records
	logger  *logger.Logger
}

func NewCustomers(records *Records, logger *logger.Logger) *Customers {
	return &Customers{records: records, logger: logger}
}

// Create stores a customer, replacing any existing one with the same email.
func (s *Customers) Create(ctx context.Context, actor string, in model.CustomerInput) (model.Customer, error) {
	input := customerInput{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
	if err := validate.Struct(input); err != nil {
		return model.Customer{}, ToValidationError(err)
	}

	rec, err := s.records.Put(ctx, input.Email,
		map[string]string{model.CustomerFieldName: input.Name},
		map[string]string{
			model.CustomerFieldEmail: input.Email,
			model.CustomerFieldPhone: input.Phone,
		},
		actor,
	)
	if err != nil {
		return model.Customer{}, err
	}

	s.logger.Info("Customers service: customer stored",
		"actor", actor,
		"record_id", rec.ID)

	return toCustomer(rec), nil
}

// Get returns the customer stored under email.
func (s *Customers) Get(ctx context.Context, email string) (model.Customer, error) {
	rec, err := s.records.Get(ctx, normalizeEmail(email))
	if err != nil {
		return model.Customer{}, err
	}
	return toCustomer(rec), nil
}

// List returns every customer in creation order.
func (s *Customers) List(ctx context.Context) ([]model.Customer, error) {
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, err
	}

	customers := make([]model.Customer, 0, len(recs))
	for _, rec := range recs {
		customers = append(customers, toCustomer(rec))
	}
	return customers, nil
}

// Delete removes the customer stored under email.
func (s *Customers) Delete(ctx context.Context, actor, email string) error {
	id := normalizeEmail(email)
	deleted, err := s.records.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return model.ErrNotFound
	}

	s.logger.Info("Customers service: customer deleted",
		"actor", actor,
		"record_id", id)

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toCustomer(rec model.Record) model.Customer {
	return model.Customer{
		Name:      rec.PlainFields[model.CustomerFieldName],
		Email:     rec.SensitiveFields[model.CustomerFieldEmail],
		Phone:     rec.SensitiveFields[model.CustomerFieldPhone],
		CreatedBy: rec.CreatedBy,
		CreatedAt: rec.CreatedAt,
	}
}

// ToValidationError converts validator output into a *model.ValidationError
// naming the first failing field.
func ToValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return model.NewValidationError(strings.ToLower(fe.Field()), describeRule(fe))
	}
	return model.NewValidationError("", err.Error())
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
