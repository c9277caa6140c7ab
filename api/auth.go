package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/membercard-labs/pass-updates/passes"
)

const applePassScheme = "ApplePass"

// authorizePass checks the ApplePass authorization header against the
// authentication token stored on the pass, and that the pass actually
// belongs to the pass type in the request path. A pass that does not exist
// fails auth the same way a bad token does, so callers can't probe for
// valid serial numbers.
func (a *API) authorizePass(ctx context.Context, r *http.Request, passTypeID string, serialNumber string) (passes.Pass, error) {
	authToken, err := applePassToken(r)
	if err != nil {
		return passes.Pass{}, err
	}

	pass, err := a.db.GetPass(ctx, serialNumber)
	if err != nil {
		var passErr *passes.Error
		if errors.As(err, &passErr) && passErr.Reason == passes.REASON_PASS_DOES_NOT_EXIST {
			return passes.Pass{}, fmt.Errorf("no pass with serial %q", serialNumber)
		}
		return passes.Pass{}, err
	}

	if pass.PassTypeID != passTypeID {
		return passes.Pass{}, fmt.Errorf("pass %q does not belong to pass type %q", serialNumber, passTypeID)
	}
	if subtle.ConstantTimeCompare([]byte(pass.AuthenticationToken), []byte(authToken)) != 1 {
		return passes.Pass{}, fmt.Errorf("authentication token mismatch for pass %q", serialNumber)
	}

	return pass, nil
}

func applePassToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != applePassScheme || token == "" {
		return "", fmt.Errorf("Authorization header is not an ApplePass token")
	}

	return token, nil
}
