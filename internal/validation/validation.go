// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/teamtrait/identity-service/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CheckStruct runs the struct tags and folds failures into the validation
// sentinel so the HTTP layer maps them to a 400.
func CheckStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%v: %w", err, types.ErrValidation)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid fields: %s: %w", strings.Join(fields, ", "), types.ErrValidation)
}
