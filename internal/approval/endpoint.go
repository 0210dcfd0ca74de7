package approval

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"metatradex/internal/httputil"
	"metatradex/internal/types"

	"github.com/golang-jwt/jwt/v5"
)

// Endpoint is the privileged review surface the first tier targets. It
// accepts the internal service token or a JWT carrying the admin role,
// then applies the decision directly.
type Endpoint struct {
	approver      *Approver
	internalToken string
	jwtSecret     []byte
	isAdmin       func(ctx context.Context, userID string) bool
}

func NewEndpoint(approver *Approver, internalToken string, jwtSecret []byte, isAdmin func(ctx context.Context, userID string) bool) *Endpoint {
	return &Endpoint{approver: approver, internalToken: internalToken, jwtSecret: jwtSecret, isAdmin: isAdmin}
}

type endpointClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	adminID, ok := e.authorize(r)
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, endpointResponse{Success: false, Error: "unauthorized"})
		return
	}
	var req endpointRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, endpointResponse{Success: false, Error: "invalid JSON body"})
		return
	}
	table := types.ReviewTable(req.Table)
	action := types.ReviewAction(req.Action)
	status, err := e.approver.ApplyDecision(r.Context(), table, action, req.ID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPending):
			httputil.WriteJSON(w, http.StatusOK, endpointResponse{Success: false, Error: "Record is not pending"})
		case errors.Is(err, ErrNotFound):
			httputil.WriteJSON(w, http.StatusOK, endpointResponse{Success: false, Error: "Record not found"})
		default:
			httputil.WriteJSON(w, http.StatusBadRequest, endpointResponse{Success: false, Error: err.Error()})
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, endpointResponse{Success: true, Status: string(status)})
}

// authorize returns the reviewing admin's ID. The internal token acts as
// the system reviewer and yields an empty ID.
func (e *Endpoint) authorize(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if e.internalToken != "" && raw == e.internalToken {
		return "", true
	}
	claims := &endpointClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return e.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	if claims.Role == "admin" {
		return claims.Subject, true
	}
	if e.isAdmin != nil && e.isAdmin(r.Context(), claims.Subject) {
		return claims.Subject, true
	}
	return "", false
}
