// internal/api/bookings/types.go
package bookings

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/quickcourt/quickcourt/internal/api/apiutil"
)

type confirmRequest struct {
	// SlotIDs may be empty; confirming an empty selection is a no-op that
	// returns an empty outcome list.
	SlotIDs      []string `json:"slot_ids" validate:"dive,required"`
	PlayerCount  int      `json:"player_count" validate:"min=1"`
	PayerName    string   `json:"payer_name" validate:"required"`
	PayerEmail   string   `json:"payer_email" validate:"required,email"`
	PayerContact string   `json:"payer_contact" validate:"omitempty,min=7,max=20"`
}

var validate = validator.New()

func decodeConfirmRequest(r *http.Request) (confirmRequest, error) {
	var req confirmRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}

	req.PayerName = strings.TrimSpace(req.PayerName)
	req.PayerEmail = strings.TrimSpace(req.PayerEmail)
	req.PayerContact = strings.TrimSpace(req.PayerContact)

	if err := validate.Struct(req); err != nil {
		var invalid validator.ValidationErrors
		if ok := asValidationErrors(err, &invalid); ok && len(invalid) > 0 {
			first := invalid[0]
			return req, apiutil.FieldError{
				Field:  strings.ToLower(first.Field()),
				Reason: "failed validation: " + first.Tag(),
			}
		}
		return req, err
	}
	return req, nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	if errs, ok := err.(validator.ValidationErrors); ok {
		*target = errs
		return true
	}
	return false
}
