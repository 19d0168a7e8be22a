package dtos

import (
	"fmt"
	"reflect"
	"strings"

	"property-tour/internal/tour/models"

	"github.com/go-playground/validator/v10"
)

// ============================================================
// Request DTOs
// ============================================================

// PropertyRequest: тело POST /properties и PUT /properties/:id.
type PropertyRequest struct {
	Title        string        `json:"title" validate:"required,max=200"`
	PropertyType string        `json:"property_type" validate:"required,oneof=single duplex triplex"`
	EntryRoomID  string        `json:"entry_room_id"`
	Rooms        []models.Room `json:"rooms" validate:"omitempty,dive"`
}

func (r PropertyRequest) ToModel() models.Property {
	rooms := r.Rooms
	if rooms == nil {
		rooms = []models.Room{}
	}
	return models.Property{
		Title:        r.Title,
		PropertyType: models.PropertyType(r.PropertyType),
		EntryRoomID:  r.EntryRoomID,
		Rooms:        rooms,
	}
}

type HotspotRequest struct {
	Pitch        float64 `json:"pitch" validate:"gte=-90,lte=90"`
	Yaw          float64 `json:"yaw" validate:"gte=-180,lte=360"`
	TargetRoomID string  `json:"target_room_id" validate:"required"`
	Label        string  `json:"label" validate:"max=100"`
}

// RoomAttributesRequest: изменяемые поля комнаты; отсутствующее поле не меняется.
type RoomAttributesRequest struct {
	Name            *string          `json:"name" validate:"omitempty,max=100"`
	RoomType        *string          `json:"room_type" validate:"omitempty,oneof=entry living_room bedroom kitchen bathroom wc balcony corridor stairs other entrance hallway storage"`
	SquareMeters    *float64         `json:"square_meters" validate:"omitempty,gt=0"`
	FacingDirection *string          `json:"facing_direction" validate:"omitempty,oneof=N NE E SE S SW W NW"`
	Photos          []string         `json:"photos" validate:"omitempty,dive,required"`
	PanoramaPhoto   *string          `json:"panorama_photo"`
	Hotspots        []HotspotRequest `json:"hotspots" validate:"omitempty,dive"`
}

func (r RoomAttributesRequest) ToModel() models.RoomAttributes {
	attrs := models.RoomAttributes{
		Name:            r.Name,
		SquareMeters:    r.SquareMeters,
		FacingDirection: r.FacingDirection,
		Photos:          r.Photos,
		PanoramaPhoto:   r.PanoramaPhoto,
	}
	if r.RoomType != nil {
		t := models.RoomType(*r.RoomType)
		attrs.RoomType = &t
	}
	if r.Hotspots != nil {
		attrs.Hotspots = make([]models.Hotspot, 0, len(r.Hotspots))
		for _, h := range r.Hotspots {
			attrs.Hotspots = append(attrs.Hotspots, models.Hotspot{
				Pitch:        h.Pitch,
				Yaw:          h.Yaw,
				TargetRoomID: h.TargetRoomID,
				Label:        h.Label,
			})
		}
	}
	return attrs
}

// AddRoomRequest: тело POST /sessions/:sid/rooms.
type AddRoomRequest struct {
	Floor *int `json:"floor" validate:"required,gte=0,lte=2"`
	X     *int `json:"x" validate:"required"`
	Y     *int `json:"y" validate:"required"`
	RoomAttributesRequest
}

type PropertyTypeRequest struct {
	PropertyType string `json:"property_type" validate:"required,oneof=single duplex triplex"`
}

// ============================================================
// Validation
// ============================================================

var validate = newValidator()

// newValidator сообщает об ошибках по json-именам полей.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func Validate(v any) error {
	return validate.Struct(v)
}

type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FormatValidationErrors переводит ошибки validator в плоский список для ответа.
func FormatValidationErrors(errs validator.ValidationErrors) []ValidationErrorDetail {
	details := make([]ValidationErrorDetail, 0, len(errs))
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("field '%s' is required", err.Field())
		case "oneof":
			message = fmt.Sprintf("field '%s' must be one of [%s]", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("field '%s' must not exceed %s", err.Field(), err.Param())
		case "gt", "gte", "lte":
			message = fmt.Sprintf("field '%s' is out of range (%s %s)", err.Field(), err.Tag(), err.Param())
		default:
			message = fmt.Sprintf("field '%s' failed on the '%s' tag", err.Field(), err.Tag())
		}
		details = append(details, ValidationErrorDetail{
			Field:   err.Field(),
			Message: message,
			Code:    "validation_" + err.Tag(),
		})
	}
	return details
}
