package middleware

import (
	"context"
	"net/http"
)

type VendorStore interface {
	IsVendor(ctx context.Context, userID string) (bool, error)
}

func RequireVendor(vendors VendorStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			isVendor, err := vendors.IsVendor(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify vendor", http.StatusInternalServerError)
				return
			}
			if !isVendor {
				http.Error(w, "vendor privileges required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
