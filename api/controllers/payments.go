package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/absolutastore/storefront-backend/api/responses"
	"github.com/absolutastore/storefront-backend/api/validators"
	"github.com/absolutastore/storefront-backend/internal/checkout"
	pkgerrors "github.com/absolutastore/storefront-backend/pkg/errors"
	"github.com/absolutastore/storefront-backend/pkg/logger"
)

const (
	methodNotAllowedMsg       = "Method Not Allowed"
	preferenceCreationFailMsg = checkout.PreferenceFailureMessage
)

type preferenceCreator interface {
	CreatePreference(ctx context.Context, req checkout.PreferenceRequest) (*checkout.PreferenceResponse, error)
}

// PaymentPreference is the preference-creation endpoint the checkout
// orchestrator posts to. It answers with the flat {url, preferenceId} body on
// success and {error, details} on any failure.
func PaymentPreference(svc preferenceCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			responses.WriteFunctionError(w, http.StatusMethodNotAllowed, methodNotAllowedMsg, "")
			return
		}
		ctx := r.Context()
		if svc == nil {
			responses.WriteFunctionError(w, http.StatusInternalServerError, preferenceCreationFailMsg, "preference service unavailable")
			return
		}

		var req checkout.PreferenceRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			details := validationDetails(err)
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "error", details), "payments.preference_bad_request")
			}
			responses.WriteFunctionError(w, http.StatusInternalServerError, preferenceCreationFailMsg, details)
			return
		}

		resp, err := svc.CreatePreference(ctx, req)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "payments.preference_failed", err)
			}
			responses.WriteFunctionError(w, http.StatusInternalServerError, preferenceCreationFailMsg, pkgerrors.Describe(err))
			return
		}
		responses.WriteJSON(w, http.StatusOK, resp)
	}
}

// validationDetails flattens per-field validation messages into the details string.
func validationDetails(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return pkgerrors.Describe(err)
	}
	fields, ok := typed.Details().(map[string]string)
	if !ok || len(fields) == 0 {
		return pkgerrors.Describe(err)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %s", name, fields[name]))
	}
	return typed.Message() + ": " + strings.Join(parts, ", ")
}
