package emergency

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/resqnow/resqnow/internal/domain/profile"
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
	api.POST("/emergencies", h.Create)
	api.GET("/emergencies/mine", h.ListMine)
	api.POST("/emergencies/:id/share-location", h.ShareLocation)
	api.GET("/emergencies/:id/medical-info", h.MedicalInfo)

	// Resolution is a responder action and needs an approved account.
	api.POST("/emergencies/:id/resolve", h.Resolve, auth.RequireApproved())
}

func (h *Handler) Create(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	var loc Location
	if err := c.Bind(&loc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.svc.Create(c.Request().Context(), userID, loc)
	if errors.Is(err, ErrLocationUnavailable) {
		return echo.NewHTTPError(http.StatusBadRequest, "a usable location is required")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) ListMine(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByReporter(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type shareLocationRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) ShareLocation(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency id")
	}
	var req shareLocationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	answer, err := ParsePromptAnswer(req.Answer)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.svc.ShareLocation(c.Request().Context(), id, userID, answer)
	if errors.Is(err, ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "emergency not found")
	}
	if errors.Is(err, ErrNotReporter) {
		return echo.NewHTTPError(http.StatusForbidden, "only the reporter may share this emergency")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, outcome)
}

func (h *Handler) MedicalInfo(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency id")
	}
	// Approved responders see the summary of any emergency; everyone else
	// only their own.
	responder := auth.StatusFromContext(c.Request().Context()).CanViewEmergencies()
	msg, err := h.svc.MedicalInfoMessage(c.Request().Context(), id, userID, responder)
	if errors.Is(err, ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "emergency not found")
	}
	if errors.Is(err, ErrNotReporter) {
		return echo.NewHTTPError(http.StatusForbidden, "not allowed to view this emergency's medical info")
	}
	if errors.Is(err, profile.ErrProfileNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "reporter has no profile")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) Resolve(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency id")
	}
	rec, err := h.svc.Resolve(c.Request().Context(), id, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "emergency not found")
	}
	if errors.Is(err, ErrAlreadyResolved) {
		return echo.NewHTTPError(http.StatusConflict, "emergency already resolved")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}
