package floorplan

import "errors"

var (
	ErrCellOccupied        = errors.New("cell occupied")
	ErrDuplicateRoomID     = errors.New("duplicate room id")
	ErrRoomNotFound        = errors.New("room not found")
	ErrFloorOutOfRange     = errors.New("floor out of range")
	ErrInvalidPropertyType = errors.New("invalid property type")
	ErrInvalidRoomType     = errors.New("invalid room type")
	// ErrOrphanedRooms: уменьшение числа этажей оставило бы комнаты без этажа.
	ErrOrphanedRooms = errors.New("rooms exist on removed floors")
)
