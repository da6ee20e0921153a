package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/interviewledger/pkg/identity"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
)

// ClaimsContextKey is where the session middleware stores the validated claims.
const ClaimsContextKey = "auth_claims"

// SessionMiddleware validates the TAuth session cookie on every /api request.
func SessionMiddleware(signingKey []byte, issuer string, cookieName string) (gin.HandlerFunc, error) {
	validator, err := sessionvalidator.New(sessionvalidator.Config{
		SigningKey: signingKey,
		Issuer:     issuer,
		CookieName: cookieName,
	})
	if err != nil {
		return nil, err
	}
	return validator.GinMiddleware(ClaimsContextKey), nil
}

func getClaims(ctx *gin.Context) *sessionvalidator.Claims {
	claimsValue, ok := ctx.Get(ClaimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	return claims
}

// currentUser writes a 401 and returns false when the request carries no usable user id.
func currentUser(ctx *gin.Context) (identity.UserID, bool) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauthorized, "missing session"))
		return identity.UserID{}, false
	}
	userID, err := identity.NewUserID(claims.GetUserID())
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauthorized, "session has no user id"))
		return identity.UserID{}, false
	}
	return userID, true
}
