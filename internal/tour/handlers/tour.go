package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"property-tour/internal/tour/dtos"
	"property-tour/internal/tour/models"
	"property-tour/internal/tour/service"
	"property-tour/internal/tour/storage"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Tour Handler
// ============================================================

type TourHandler struct {
	props   *service.PropertyService
	editor  *service.EditorService
	storage *storage.FileStorage
	log     *zap.Logger
}

func NewTourHandler(props *service.PropertyService, editor *service.EditorService, files *storage.FileStorage, log *zap.Logger) *TourHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TourHandler{
		props:   props,
		editor:  editor,
		storage: files,
		log:     log,
	}
}

// Routes вешает все маршруты сервиса на router.
func (h *TourHandler) Routes(r fiber.Router) {
	// владелец
	r.Get("/properties", h.ListProperties)
	r.Post("/properties", h.CreateProperty)
	r.Get("/properties/:id", h.GetProperty)
	r.Put("/properties/:id", h.ReplaceProperty)
	r.Delete("/properties/:id", h.DeleteProperty)
	r.Get("/properties/:id/floors/:floor/plan.svg", h.FloorPlan)
	r.Post("/properties/:id/rooms/:roomId/panorama", h.UploadPanorama)
	r.Post("/properties/:id/rooms/:roomId/photos", h.UploadPhoto)
	r.Post("/properties/:id/sessions", h.OpenSession)

	// редактор
	r.Get("/sessions/:sid", h.GetSession)
	r.Delete("/sessions/:sid", h.DiscardSession)
	r.Get("/sessions/:sid/cells", h.ListCells)
	r.Post("/sessions/:sid/rooms", h.AddRoom)
	r.Patch("/sessions/:sid/rooms/:roomId", h.EditRoom)
	r.Delete("/sessions/:sid/rooms/:roomId", h.DeleteRoom)
	r.Put("/sessions/:sid/property-type", h.SetPropertyType)
	r.Post("/sessions/:sid/save", h.SaveSession)

	// просмотрщик
	r.Get("/public/properties/:id", h.PublicProperty)
	r.Get("/public/properties/:id/rooms/:roomId", h.PublicRoom)
	r.Get("/public/properties/:id/floors/:floor/plan.svg", h.FloorPlan)

	r.Get("/media/:pid/:rid/*", h.ServeMedia)
}

// ============================================================
// Properties
// ============================================================

func (h *TourHandler) ListProperties(c fiber.Ctx) error {
	items, err := h.props.List(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"properties": items, "total": len(items)})
}

func (h *TourHandler) CreateProperty(c fiber.Ctx) error {
	var req dtos.PropertyRequest
	if err := h.decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	p, err := h.props.Create(c.Context(), req.ToModel())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(p)
}

func (h *TourHandler) GetProperty(c fiber.Ctx) error {
	p, err := h.props.Get(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

func (h *TourHandler) ReplaceProperty(c fiber.Ctx) error {
	var req dtos.PropertyRequest
	if err := h.decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	p, err := h.props.Replace(c.Context(), c.Params("id"), req.ToModel())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

func (h *TourHandler) DeleteProperty(c fiber.Ctx) error {
	if err := h.props.Delete(c.Context(), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// FloorPlan отдает SVG-план этажа; общий для владельца и просмотрщика.
func (h *TourHandler) FloorPlan(c fiber.Ctx) error {
	floor, err := strconv.Atoi(c.Params("floor"))
	if err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: floor must be an integer", errBadRequest))
	}
	svg, err := h.props.FloorPlanSVG(c.Context(), c.Params("id"), floor)
	if err != nil {
		return respondError(c, h.log, err)
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// ============================================================
// Media
// ============================================================

// UploadPanorama принимает multipart-поле "file" и делает его панорамой комнаты.
func (h *TourHandler) UploadPanorama(c fiber.Ctx) error {
	return h.upload(c, h.props.AttachPanorama)
}

// UploadPhoto добавляет фото в галерею комнаты.
func (h *TourHandler) UploadPhoto(c fiber.Ctx) error {
	return h.upload(c, h.props.AddPhoto)
}

type attachFunc func(ctx context.Context, propertyID, roomID, filename string, data []byte) (models.Room, error)

func (h *TourHandler) upload(c fiber.Ctx, attach attachFunc) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: file required", errBadRequest))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if len(data) == 0 {
		return respondError(c, h.log, fmt.Errorf("%w: file is empty", errBadRequest))
	}

	room, err := attach(c.Context(), c.Params("id"), c.Params("roomId"), fileHeader.Filename, data)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(room)
}

func (h *TourHandler) ServeMedia(c fiber.Ctx) error {
	rel := c.Params("pid") + "/" + c.Params("rid") + "/" + c.Params("*")
	path, err := h.storage.Resolve(rel)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendFile(path)
}

// ============================================================
// Editor sessions
// ============================================================

func (h *TourHandler) OpenSession(c fiber.Ctx) error {
	snap, err := h.editor.Open(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(snap)
}

func (h *TourHandler) GetSession(c fiber.Ctx) error {
	snap, err := h.editor.Snapshot(c.Params("sid"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(snap)
}

func (h *TourHandler) DiscardSession(c fiber.Ctx) error {
	if err := h.editor.Discard(c.Params("sid")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListCells: GET /sessions/:sid/cells?floor=N (по умолчанию 0).
func (h *TourHandler) ListCells(c fiber.Ctx) error {
	floor := 0
	if raw := c.Query("floor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, h.log, fmt.Errorf("%w: floor must be an integer", errBadRequest))
		}
		floor = n
	}
	view, err := h.editor.Cells(c.Params("sid"), floor)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

func (h *TourHandler) AddRoom(c fiber.Ctx) error {
	var req dtos.AddRoomRequest
	if err := h.decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	room, err := h.editor.AddRoom(c.Params("sid"), *req.Floor, *req.X, *req.Y, req.RoomAttributesRequest.ToModel())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(http.StatusCreated).JSON(room)
}

func (h *TourHandler) EditRoom(c fiber.Ctx) error {
	var req dtos.RoomAttributesRequest
	if err := h.decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	room, err := h.editor.EditRoom(c.Params("sid"), c.Params("roomId"), req.ToModel())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(room)
}

func (h *TourHandler) DeleteRoom(c fiber.Ctx) error {
	if err := h.editor.DeleteRoom(c.Params("sid"), c.Params("roomId")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *TourHandler) SetPropertyType(c fiber.Ctx) error {
	var req dtos.PropertyTypeRequest
	if err := h.decode(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	snap, err := h.editor.SetPropertyType(c.Params("sid"), models.PropertyType(req.PropertyType))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(snap)
}

func (h *TourHandler) SaveSession(c fiber.Ctx) error {
	p, err := h.editor.Save(c.Context(), c.Params("sid"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(p)
}

// ============================================================
// Public viewer
// ============================================================

func (h *TourHandler) PublicProperty(c fiber.Ctx) error {
	view, err := h.props.PublicView(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

func (h *TourHandler) PublicRoom(c fiber.Ctx) error {
	view, err := h.props.RoomView(c.Context(), c.Params("id"), c.Params("roomId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(view)
}

// ============================================================
// Helpers
// ============================================================

// decode разбирает JSON-тело и валидирует его.
func (h *TourHandler) decode(c fiber.Ctx, out any) error {
	body := c.Body()
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: invalid json", errBadRequest)
	}
	return dtos.Validate(out)
}
