package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func requestWithIdentity(e *echo.Echo, role string, approved bool) echo.Context {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := req.Context()
	ctx = context.WithValue(ctx, UserRoleKey, role)
	ctx = context.WithValue(ctx, UserApprovedKey, approved)
	req = req.WithContext(ctx)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole_Match(t *testing.T) {
	e := echo.New()
	handler := RequireRole("paramedic")(okHandler)

	c := requestWithIdentity(e, "paramedic", true)
	if err := handler(c); err != nil {
		t.Errorf("expected paramedic to pass, got %v", err)
	}
}

func TestRequireRole_AdminOverride(t *testing.T) {
	e := echo.New()
	handler := RequireRole("paramedic")(okHandler)

	c := requestWithIdentity(e, RoleAdmin, true)
	if err := handler(c); err != nil {
		t.Errorf("expected admin to pass any role check, got %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	e := echo.New()
	handler := RequireRole("paramedic")(okHandler)

	c := requestWithIdentity(e, "user", true)
	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireApproved(t *testing.T) {
	e := echo.New()
	handler := RequireApproved()(okHandler)

	if err := handler(requestWithIdentity(e, "user", true)); err != nil {
		t.Errorf("expected approved user to pass, got %v", err)
	}
	if err := handler(requestWithIdentity(e, RoleAdmin, false)); err != nil {
		t.Errorf("expected admin to pass without explicit approval, got %v", err)
	}

	err := handler(requestWithIdentity(e, "user", false))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for unapproved user, got %v", err)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		role     string
		approved bool
		want     StatusKind
	}{
		{RoleAdmin, false, StatusAdmin},
		{RoleAdmin, true, StatusAdmin},
		{"paramedic", true, StatusApproved},
		{"user", false, StatusUnapproved},
		{"", false, StatusUnapproved},
	}
	for _, tc := range cases {
		got := StatusFor(tc.role, tc.approved)
		if got.Kind != tc.want {
			t.Errorf("StatusFor(%q, %v): expected %v, got %v", tc.role, tc.approved, tc.want, got.Kind)
		}
		if got.Role != tc.role {
			t.Errorf("StatusFor(%q, %v): role not preserved", tc.role, tc.approved)
		}
	}
}

func TestAccountStatus_Capabilities(t *testing.T) {
	admin := StatusFor(RoleAdmin, false)
	if !admin.CanViewEmergencies() || !admin.CanManageAccounts() {
		t.Error("expected admin to have all capabilities")
	}

	approved := StatusFor("user", true)
	if !approved.CanViewEmergencies() {
		t.Error("expected approved account to view emergencies")
	}
	if approved.CanManageAccounts() {
		t.Error("expected approved non-admin not to manage accounts")
	}

	pending := StatusFor("user", false)
	if pending.CanViewEmergencies() || pending.CanManageAccounts() {
		t.Error("expected unapproved account to have no elevated capabilities")
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health") {
		t.Error("expected /health to be public")
	}
	if !IsPublicPath("/metrics") {
		t.Error("expected /metrics to be public")
	}
	if IsPublicPath("/emergencies/active") {
		t.Error("expected /emergencies/active to require auth")
	}
}
