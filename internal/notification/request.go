package notification

import (
	"errors"
	"fmt"
	"strings"

	"souq/server/internal/models"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest wraps every validation failure of CreateRequest.
var ErrInvalidRequest = errors.New("invalid notification request")

// CreateRequest is the input of CreateNotification.
type CreateRequest struct {
	Title          string                  `json:"title" validate:"required,max=200"`
	Message        string                  `json:"message" validate:"required,max=4000"`
	Type           models.NotificationType `json:"type" validate:"required,notification_type"`
	UserID         *int64                  `json:"userId" validate:"omitempty,gt=0"`
	TargetUserType *models.UserType        `json:"targetUserType" validate:"omitempty,user_type"`
	RequestID      *int64                  `json:"requestId" validate:"omitempty,gt=0"`
	IsFromAdmin    bool                    `json:"isFromAdmin"`
	AdminID        *int64                  `json:"adminId" validate:"omitempty,gt=0"`
	Link           *string                 `json:"link" validate:"omitempty,max=500"`
	Icon           *string                 `json:"icon" validate:"omitempty,max=100"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %q: %v", tag, err))
		}
	}
	mustRegister("notification_type", func(fl validator.FieldLevel) bool {
		return models.NotificationType(fl.Field().String()).Valid()
	})
	mustRegister("user_type", func(fl validator.FieldLevel) bool {
		return models.UserType(fl.Field().String()).Valid()
	})
	return v
}

// validate trims the text fields and checks the request.
func (s *Service) validate(req *CreateRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)

	if err := s.validator.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}
