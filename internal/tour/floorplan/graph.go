package floorplan

import (
	"fmt"
	"strings"

	"property-tour/internal/tour/models"

	"github.com/google/uuid"
)

// ============================================================
// Floor Plan Graph
// ============================================================

type cellKey struct {
	floor int
	x     int
	y     int
}

// Graph хранит комнаты одного объекта по этажам и поддерживает
// симметричные связи между соседними клетками. Не потокобезопасен:
// синхронизацию обеспечивает владелец (сессия редактора).
type Graph struct {
	property    models.Property
	rooms       []*models.Room
	index       map[string]*models.Room
	cells       map[cellKey]string
	entryRoomID string
	newID       func() string
}

func New(propertyType models.PropertyType) (*Graph, error) {
	if propertyType.Levels() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPropertyType, propertyType)
	}
	g := &Graph{newID: uuid.NewString}
	g.reset()
	g.property.PropertyType = propertyType
	return g, nil
}

// Load собирает граф из сохраненного документа и восстанавливает инварианты связей.
func Load(p models.Property) (*Graph, error) {
	g, err := New(p.PropertyType)
	if err != nil {
		return nil, err
	}
	g.property = p
	g.property.Rooms = nil

	for i := range p.Rooms {
		room := p.Rooms[i].Clone()
		if err := g.checkFloor(room.Floor); err != nil {
			return nil, fmt.Errorf("room %q: %w", room.ID, err)
		}
		if room.ID == "" {
			room.ID = g.newID()
		}
		if _, dup := g.index[room.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoomID, room.ID)
		}
		if room.RoomType == "" {
			room.RoomType = models.RoomOther
		}
		if !room.RoomType.Valid() {
			return nil, fmt.Errorf("room %q: %w: %q", room.ID, ErrInvalidRoomType, room.RoomType)
		}
		key := cellKey{floor: room.Floor, x: room.PositionX, y: room.PositionY}
		if other, taken := g.cells[key]; taken {
			return nil, fmt.Errorf("%w: floor %d (%d,%d) by %q and %q",
				ErrCellOccupied, room.Floor, room.PositionX, room.PositionY, other, room.ID)
		}
		if room.Photos == nil {
			room.Photos = []string{}
		}
		g.insert(&room)
	}

	g.normalizeConnections()

	if _, ok := g.index[p.EntryRoomID]; ok {
		g.entryRoomID = p.EntryRoomID
	}
	return g, nil
}

// SetIDFunc задает генератор идентификаторов комнат (в тестах детерминированный).
func (g *Graph) SetIDFunc(f func() string) {
	if f == nil {
		g.newID = uuid.NewString
		return
	}
	g.newID = f
}

func (g *Graph) reset() {
	g.rooms = nil
	g.index = make(map[string]*models.Room)
	g.cells = make(map[cellKey]string)
	g.entryRoomID = ""
}

// ============================================================
// Mutations
// ============================================================

// AddRoom размещает комнату в пустой клетке и связывает ее со всеми
// ортогональными соседями на том же этаже.
func (g *Graph) AddRoom(floor, x, y int, attrs models.RoomAttributes) (models.Room, error) {
	if err := g.checkFloor(floor); err != nil {
		return models.Room{}, err
	}
	key := cellKey{floor: floor, x: x, y: y}
	if _, taken := g.cells[key]; taken {
		return models.Room{}, fmt.Errorf("%w: floor %d (%d,%d)", ErrCellOccupied, floor, x, y)
	}

	room := &models.Room{
		ID:          g.newID(),
		RoomType:    models.RoomOther,
		Floor:       floor,
		PositionX:   x,
		PositionY:   y,
		Photos:      []string{},
		Connections: []string{},
	}
	if err := applyAttributes(room, attrs); err != nil {
		return models.Room{}, err
	}
	if strings.TrimSpace(room.Name) == "" {
		room.Name = roomTypeLabel(room.RoomType)
	}

	for _, n := range g.neighbours(floor, x, y) {
		room.Connections = appendUnique(room.Connections, n.ID)
		n.Connections = appendUnique(n.Connections, room.ID)
	}
	g.insert(room)

	if g.entryRoomID == "" && room.RoomType == models.RoomEntry {
		g.entryRoomID = room.ID
	}
	return room.Clone(), nil
}

// EditRoom меняет только описательные поля; позиция, этаж и связи не трогаются.
func (g *Graph) EditRoom(roomID string, attrs models.RoomAttributes) (models.Room, error) {
	room, ok := g.index[roomID]
	if !ok {
		return models.Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}
	updated := room.Clone()
	if err := applyAttributes(&updated, attrs); err != nil {
		return models.Room{}, err
	}
	// имя по умолчанию следует за типом, пока его не задали вручную
	if attrs.Name == nil && updated.RoomType != room.RoomType && room.Name == roomTypeLabel(room.RoomType) {
		updated.Name = roomTypeLabel(updated.RoomType)
	}
	room.Name = updated.Name
	room.RoomType = updated.RoomType
	room.SquareMeters = updated.SquareMeters
	room.FacingDirection = updated.FacingDirection
	room.Photos = updated.Photos
	room.PanoramaPhoto = updated.PanoramaPhoto
	room.Hotspots = updated.Hotspots
	return room.Clone(), nil
}

// DeleteRoom удаляет комнату и ее id из связей соседей.
// Отсутствующий id дает ErrRoomNotFound, как и в EditRoom.
func (g *Graph) DeleteRoom(roomID string) error {
	room, ok := g.index[roomID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}

	for _, other := range g.rooms {
		other.Connections = remove(other.Connections, roomID)
	}

	delete(g.index, roomID)
	delete(g.cells, cellKey{floor: room.Floor, x: room.PositionX, y: room.PositionY})
	for i, r := range g.rooms {
		if r.ID == roomID {
			g.rooms = append(g.rooms[:i], g.rooms[i+1:]...)
			break
		}
	}

	if g.entryRoomID == roomID {
		g.entryRoomID = ""
	}
	return nil
}

// SetPropertyType меняет тип объекта. Уменьшение этажности при наличии
// комнат на отрезанных этажах запрещено, их нужно удалить явно.
func (g *Graph) SetPropertyType(t models.PropertyType) error {
	levels := t.Levels()
	if levels == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidPropertyType, t)
	}
	var orphaned []string
	for _, r := range g.rooms {
		if r.Floor >= levels {
			orphaned = append(orphaned, r.ID)
		}
	}
	if len(orphaned) > 0 {
		return fmt.Errorf("%w: %s", ErrOrphanedRooms, strings.Join(orphaned, ", "))
	}
	g.property.PropertyType = t
	return nil
}

func applyAttributes(room *models.Room, attrs models.RoomAttributes) error {
	if attrs.RoomType != nil {
		if !attrs.RoomType.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidRoomType, *attrs.RoomType)
		}
		room.RoomType = *attrs.RoomType
	}
	if attrs.Name != nil {
		room.Name = strings.TrimSpace(*attrs.Name)
	}
	if attrs.SquareMeters != nil {
		sq := *attrs.SquareMeters
		room.SquareMeters = &sq
	}
	if attrs.FacingDirection != nil {
		room.FacingDirection = *attrs.FacingDirection
	}
	if attrs.Photos != nil {
		room.Photos = append([]string{}, attrs.Photos...)
	}
	if attrs.PanoramaPhoto != nil {
		room.PanoramaPhoto = *attrs.PanoramaPhoto
	}
	if attrs.Hotspots != nil {
		room.Hotspots = append([]models.Hotspot{}, attrs.Hotspots...)
	}
	return nil
}

// ============================================================
// Queries
// ============================================================

func (g *Graph) Room(id string) (models.Room, bool) {
	room, ok := g.index[id]
	if !ok {
		return models.Room{}, false
	}
	return room.Clone(), true
}

func (g *Graph) Rooms() []models.Room {
	out := make([]models.Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r.Clone())
	}
	return out
}

func (g *Graph) RoomsOnFloor(floor int) []models.Room {
	var out []models.Room
	for _, r := range g.rooms {
		if r.Floor == floor {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (g *Graph) EntryRoomID() string {
	return g.entryRoomID
}

func (g *Graph) PropertyType() models.PropertyType {
	return g.property.PropertyType
}

func (g *Graph) Levels() int {
	return g.property.PropertyType.Levels()
}

// StartRoom выбирает комнату, с которой начинается тур: вход, затем первая
// комната с панорамой, затем просто первая.
func (g *Graph) StartRoom() (models.Room, bool) {
	if g.entryRoomID != "" {
		return g.Room(g.entryRoomID)
	}
	for _, r := range g.rooms {
		if r.PanoramaPhoto != "" {
			return r.Clone(), true
		}
	}
	if len(g.rooms) == 0 {
		return models.Room{}, false
	}
	return g.rooms[0].Clone(), true
}

// Property возвращает снимок документа для сохранения.
func (g *Graph) Property() models.Property {
	p := g.property
	p.EntryRoomID = g.entryRoomID
	p.Rooms = g.Rooms()
	return p
}

// ============================================================
// Helpers
// ============================================================

func (g *Graph) checkFloor(floor int) error {
	if floor < 0 || floor >= g.Levels() {
		return fmt.Errorf("%w: %d (levels %d)", ErrFloorOutOfRange, floor, g.Levels())
	}
	return nil
}

func (g *Graph) insert(room *models.Room) {
	if room.Connections == nil {
		room.Connections = []string{}
	}
	g.rooms = append(g.rooms, room)
	g.index[room.ID] = room
	g.cells[cellKey{floor: room.Floor, x: room.PositionX, y: room.PositionY}] = room.ID
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

func appendUnique(dst []string, src ...string) []string {
	for _, s := range src {
		if !contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

func remove(list []string, target string) []string {
	out := list[:0]
	for _, item := range list {
		if item != target {
			out = append(out, item)
		}
	}
	return out
}
