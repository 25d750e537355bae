package helper

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

func Validate(s any) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if errValidat := validate.Struct(s); errValidat != nil {
		var validateErrs validator.ValidationErrors
		if errors.As(errValidat, &validateErrs) && len(validateErrs) > 0 {
			return fmt.Errorf("%+v: param= %+v", validateErrs[0], validateErrs[0].Param())
		} // end if
		return errValidat
	} // end if
	return nil
} // end Validate()

