package responder

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/resqnow/resqnow/internal/domain/emergency"
	"github.com/resqnow/resqnow/internal/platform/auth"
	"github.com/resqnow/resqnow/internal/platform/intents"
)

// EmergencyStore is the slice of the dispatcher the responder views read.
type EmergencyStore interface {
	ListActive(ctx context.Context) ([]*emergency.Record, error)
	Get(ctx context.Context, id uuid.UUID) (*emergency.Record, error)
}

type Handler struct {
	store   EmergencyStore
	matcher *Matcher
}

func NewHandler(store EmergencyStore, matcher *Matcher) *Handler {
	return &Handler{store: store, matcher: matcher}
}

// RegisterRoutes wires the responder dashboard endpoints. All of them need an
// approved account.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("", auth.RequireApproved())
	grp.GET("/emergencies/active", h.ListActive)
	grp.GET("/emergencies/nearby", h.ListNearby)
	grp.GET("/emergencies/:id", h.Detail)
}

// positionFromQuery reads the responder's position from lat/lon query
// params. Both absent means no position; one absent is an error.
func positionFromQuery(c echo.Context) (*Position, error) {
	latStr, lonStr := c.QueryParam("lat"), c.QueryParam("lon")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("invalid lat")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, errors.New("invalid lon")
	}
	return &Position{Latitude: lat, Longitude: lon}, nil
}

func (h *Handler) ListActive(c echo.Context) error {
	pos, err := positionFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	records, err := h.store.ListActive(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.matcher.BuildViews(c.Request().Context(), records, pos))
}

func (h *Handler) ListNearby(c echo.Context) error {
	pos, err := positionFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if pos == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat and lon are required")
	}
	records, err := h.store.ListActive(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, h.matcher.NearbyViews(c.Request().Context(), records, *pos))
}

type detailResponse struct {
	*View
	NavigationURL string `json:"navigation_url"`
	DialURL       string `json:"dial_url,omitempty"`
}

func (h *Handler) Detail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid emergency id")
	}
	pos, err := positionFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.store.Get(c.Request().Context(), id)
	if errors.Is(err, emergency.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "emergency not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	views := h.matcher.BuildViews(c.Request().Context(), []*emergency.Record{rec}, pos)
	resp := detailResponse{
		View:          views[0],
		NavigationURL: intents.MapsNavigation(rec.Location.Latitude, rec.Location.Longitude),
	}
	if resp.UserInfo != nil && resp.UserInfo.Phone != nil && *resp.UserInfo.Phone != "" {
		resp.DialURL = intents.Dialer(*resp.UserInfo.Phone)
	}
	return c.JSON(http.StatusOK, resp)
}
