package handlers

import (
	"errors"
	"net/http"

	"property-tour/internal/tour/dtos"
	"property-tour/internal/tour/floorplan"
	"property-tour/internal/tour/render"
	"property-tour/internal/tour/repository"
	"property-tour/internal/tour/session"
	"property-tour/internal/tour/storage"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Error mapping
// ============================================================

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []dtos.ValidationErrorDetail `json:"details,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Порядок важен: первая совпавшая ошибка определяет ответ.
var errorMappings = []errorMapping{
	{errBadRequest, http.StatusBadRequest, "bad_request", ""},
	{floorplan.ErrCellOccupied, http.StatusConflict, "cell_occupied", "bu hücre dolu"},
	{floorplan.ErrDuplicateRoomID, http.StatusConflict, "duplicate_room_id", ""},
	{floorplan.ErrOrphanedRooms, http.StatusConflict, "orphaned_rooms", ""},
	{floorplan.ErrRoomNotFound, http.StatusNotFound, "room_not_found", ""},
	{repository.ErrNotFound, http.StatusNotFound, "property_not_found", ""},
	{session.ErrSessionNotFound, http.StatusNotFound, "session_not_found", ""},
	{render.ErrEmptyFloor, http.StatusNotFound, "empty_floor", ""},
	{storage.ErrInvalidPath, http.StatusNotFound, "media_not_found", ""},
	{floorplan.ErrFloorOutOfRange, http.StatusUnprocessableEntity, "floor_out_of_range", ""},
	{floorplan.ErrInvalidPropertyType, http.StatusUnprocessableEntity, "invalid_property_type", ""},
	{floorplan.ErrInvalidRoomType, http.StatusUnprocessableEntity, "invalid_room_type", ""},
	{storage.ErrUnsupportedImage, http.StatusUnprocessableEntity, "unsupported_image", ""},
}

// respondError переводит доменную ошибку в JSON-ответ. Неизвестные ошибки
// логируются и отдаются как 500 без подробностей.
func respondError(c fiber.Ctx, log *zap.Logger, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(http.StatusBadRequest).JSON(errorResponse{
			Error:   "validation_failed",
			Message: "request validation failed",
			Details: dtos.FormatValidationErrors(verrs),
		})
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return c.Status(m.status).JSON(errorResponse{Error: m.code, Message: msg})
		}
	}

	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(http.StatusInternalServerError).JSON(errorResponse{
		Error:   "internal_error",
		Message: "internal server error",
	})
}
