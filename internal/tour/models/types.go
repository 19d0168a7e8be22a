package models

// ============================================================
// Room types
// ============================================================

type RoomType string

const (
	RoomEntry    RoomType = "entry"
	RoomLiving   RoomType = "living_room"
	RoomBedroom  RoomType = "bedroom"
	RoomKitchen  RoomType = "kitchen"
	RoomBathroom RoomType = "bathroom"
	RoomWC       RoomType = "wc"
	RoomBalcony  RoomType = "balcony"
	RoomCorridor RoomType = "corridor"
	RoomStairs   RoomType = "stairs"
	RoomOther    RoomType = "other"
	RoomEntrance RoomType = "entrance"
	RoomHallway  RoomType = "hallway"
	RoomStorage  RoomType = "storage"
)

var roomTypes = map[RoomType]bool{
	RoomEntry: true, RoomLiving: true, RoomBedroom: true, RoomKitchen: true,
	RoomBathroom: true, RoomWC: true, RoomBalcony: true, RoomCorridor: true,
	RoomStairs: true, RoomOther: true, RoomEntrance: true, RoomHallway: true,
	RoomStorage: true,
}

func (t RoomType) Valid() bool {
	return roomTypes[t]
}

// ============================================================
// Property types
// ============================================================

type PropertyType string

const (
	PropertySingle  PropertyType = "single"
	PropertyDuplex  PropertyType = "duplex"
	PropertyTriplex PropertyType = "triplex"
)

// Levels возвращает количество этажей для типа; 0 для неизвестного типа.
func (t PropertyType) Levels() int {
	switch t {
	case PropertySingle:
		return 1
	case PropertyDuplex:
		return 2
	case PropertyTriplex:
		return 3
	}
	return 0
}

// ============================================================
// Grid primitives
// ============================================================

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Bounds struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

func (b Bounds) Width() int  { return b.MaxX - b.MinX + 1 }
func (b Bounds) Height() int { return b.MaxY - b.MinY + 1 }

// ============================================================
// Documents
// ============================================================

type Hotspot struct {
	Pitch        float64 `json:"pitch"`
	Yaw          float64 `json:"yaw"`
	TargetRoomID string  `json:"target_room_id"`
	Label        string  `json:"label,omitempty"`
}

type Room struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	RoomType        RoomType  `json:"room_type"`
	Floor           int       `json:"floor"`
	PositionX       int       `json:"position_x"`
	PositionY       int       `json:"position_y"`
	SquareMeters    *float64  `json:"square_meters,omitempty"`
	FacingDirection string    `json:"facing_direction,omitempty"`
	Photos          []string  `json:"photos"`
	PanoramaPhoto   string    `json:"panorama_photo,omitempty"`
	Connections     []string  `json:"connections"`
	Hotspots        []Hotspot `json:"hotspots,omitempty"`
}

func (r Room) Cell() Cell {
	return Cell{X: r.PositionX, Y: r.PositionY}
}

// Clone копирует комнату вместе со срезами.
func (r Room) Clone() Room {
	out := r
	out.Photos = append([]string{}, r.Photos...)
	out.Connections = append([]string{}, r.Connections...)
	if r.Hotspots != nil {
		out.Hotspots = append([]Hotspot{}, r.Hotspots...)
	}
	if r.SquareMeters != nil {
		sq := *r.SquareMeters
		out.SquareMeters = &sq
	}
	return out
}

type Property struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	PropertyType PropertyType `json:"property_type"`
	EntryRoomID  string       `json:"entry_room_id,omitempty"`
	Rooms        []Room       `json:"rooms"`
	CreatedAt    string       `json:"created_at,omitempty"`
	UpdatedAt    string       `json:"updated_at,omitempty"`
}

// RoomAttributes описывает изменяемые поля комнаты. nil означает "не менять".
// Позиции и этажа здесь нет: после размещения они неизменны.
type RoomAttributes struct {
	Name            *string   `json:"name,omitempty"`
	RoomType        *RoomType `json:"room_type,omitempty"`
	SquareMeters    *float64  `json:"square_meters,omitempty"`
	FacingDirection *string   `json:"facing_direction,omitempty"`
	Photos          []string  `json:"photos,omitempty"`
	PanoramaPhoto   *string   `json:"panorama_photo,omitempty"`
	Hotspots        []Hotspot `json:"hotspots,omitempty"`
}
