package profile

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resqnow/resqnow/internal/platform/auth"
	"github.com/resqnow/resqnow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/profiles/me", h.GetMe)
	api.PUT("/profiles/me", h.SaveMe)
	api.PUT("/profiles/me/auto-share", h.SetAutoShare)

	// Account management – admin only
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/profiles", h.List)
	adminGroup.PUT("/profiles/:user_id/approval", h.SetApproval)
	adminGroup.PUT("/profiles/:user_id/role", h.SetRole)
}

type profileResponse struct {
	*Profile
	Vitals             DerivedVitals       `json:"vitals"`
	BloodCompatibility *BloodCompatibility `json:"blood_compatibility,omitempty"`
}

func newProfileResponse(p *Profile) profileResponse {
	resp := profileResponse{Profile: p, Vitals: Derived(p)}
	if c, ok := Compatibility(p); ok {
		resp.BloodCompatibility = &c
	}
	return resp
}

func (h *Handler) GetMe(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	p, err := h.svc.Get(c.Request().Context(), userID)
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, newProfileResponse(p))
}

func (h *Handler) SaveMe(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	var p Profile
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.UserID = userID
	// Role and approval come only from the admin endpoints; a body-supplied
	// value must never reach the store.
	p.Role = ""
	p.Approved = false
	if err := h.svc.Save(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	merged, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, newProfileResponse(merged))
}

type autoShareRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) SetAutoShare(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	var req autoShareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetAutoShare(c.Request().Context(), userID, req.Enabled); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type approvalRequest struct {
	Approved bool `json:"approved"`
}

func (h *Handler) SetApproval(c echo.Context) error {
	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := h.svc.SetApproval(c.Request().Context(), c.Param("user_id"), req.Approved)
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) SetRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	err := h.svc.SetRole(c.Request().Context(), c.Param("user_id"), req.Role)
	if errors.Is(err, ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
