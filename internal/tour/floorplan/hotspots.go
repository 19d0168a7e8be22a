package floorplan

import (
	"fmt"
	"strings"

	"property-tour/internal/tour/models"
)

// ============================================================
// Viewer navigation
// ============================================================

const derivedPitch = -15.0

const genericRoomLabel = "Oda"

var roomTypeLabels = map[models.RoomType]string{
	models.RoomEntry:    "Giriş",
	models.RoomLiving:   "Salon",
	models.RoomBedroom:  "Yatak Odası",
	models.RoomKitchen:  "Mutfak",
	models.RoomBathroom: "Banyo",
	models.RoomWC:       "WC",
	models.RoomBalcony:  "Balkon",
	models.RoomCorridor: "Koridor",
	models.RoomStairs:   "Merdiven",
	models.RoomOther:    "Diğer",
	models.RoomEntrance: "Antre",
	models.RoomHallway:  "Hol",
	models.RoomStorage:  "Depo",
}

func roomTypeLabel(t models.RoomType) string {
	if label, ok := roomTypeLabels[t]; ok {
		return label
	}
	return genericRoomLabel
}

// DisplayName: собственное имя, иначе подпись типа, иначе "Oda".
func DisplayName(room models.Room) string {
	if name := strings.TrimSpace(room.Name); name != "" {
		return name
	}
	return roomTypeLabel(room.RoomType)
}

func goToLabel(room models.Room) string {
	return DisplayName(room) + "'ya Git"
}

// DeriveHotspots строит список переходов для панорамы комнаты.
// Авторские хотспоты имеют приоритет; ссылки на удаленные комнаты отбрасываются.
// Иначе по одному хотспоту на связь, равномерно по горизонту.
func (g *Graph) DeriveHotspots(roomID string) ([]models.Hotspot, error) {
	room, ok := g.index[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}

	if len(room.Hotspots) > 0 {
		out := make([]models.Hotspot, 0, len(room.Hotspots))
		for _, h := range room.Hotspots {
			target, ok := g.index[h.TargetRoomID]
			if !ok {
				continue
			}
			if h.Label == "" {
				h.Label = goToLabel(*target)
			}
			out = append(out, h)
		}
		return out, nil
	}

	total := len(room.Connections)
	out := make([]models.Hotspot, 0, total)
	for i, id := range room.Connections {
		target, ok := g.index[id]
		if !ok {
			continue
		}
		out = append(out, models.Hotspot{
			Pitch:        derivedPitch,
			Yaw:          float64(i)/float64(total)*360 - 180,
			TargetRoomID: id,
			Label:        DisplayName(*target),
		})
	}
	return out, nil
}
