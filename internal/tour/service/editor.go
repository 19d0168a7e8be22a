package service

import (
	"context"

	"property-tour/internal/tour/floorplan"
	"property-tour/internal/tour/models"
	"property-tour/internal/tour/session"

	"go.uber.org/zap"
)

// ============================================================
// Editor Service
// ============================================================

// CellsView: клетки, куда можно поставить новую комнату, и рамка этажа.
type CellsView struct {
	Floor     int            `json:"floor"`
	Cells     []models.Cell  `json:"cells"`
	Bounds    *models.Bounds `json:"bounds,omitempty"`
	RoomCount int            `json:"room_count"`
}

// Snapshot: текущее состояние правки, еще не сохраненное.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Property  models.Property `json:"property"`
	Floors    []int           `json:"floors"`
}

// EditorService ведет правку плана в сессиях: граф живет в памяти,
// документ в хранилище переписывается только при Save.
type EditorService struct {
	props    *PropertyService
	sessions *session.Manager
	log      *zap.Logger
}

func NewEditorService(props *PropertyService, sessions *session.Manager, log *zap.Logger) *EditorService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &EditorService{props: props, sessions: sessions, log: log}
	props.onMedia = s.mirrorMedia
	return s
}

func (s *EditorService) Open(ctx context.Context, propertyID string) (*Snapshot, error) {
	g, _, err := s.props.load(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	sess := s.sessions.Open(propertyID, g)
	s.log.Info("editor session opened", zap.String("session_id", sess.ID), zap.String("property_id", propertyID))
	return s.Snapshot(sess.ID)
}

func (s *EditorService) Snapshot(sessionID string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.do(sessionID, func(g *floorplan.Graph) error {
		snap = &Snapshot{SessionID: sessionID, Property: g.Property(), Floors: g.Floors()}
		return nil
	})
	return snap, err
}

func (s *EditorService) Cells(sessionID string, floor int) (*CellsView, error) {
	var view *CellsView
	err := s.do(sessionID, func(g *floorplan.Graph) error {
		if floor < 0 || floor >= g.Levels() {
			return floorplan.ErrFloorOutOfRange
		}
		view = &CellsView{
			Floor:     floor,
			Cells:     g.ListEmptyAdjacentCells(floor),
			RoomCount: len(g.RoomsOnFloor(floor)),
		}
		if b, ok := g.Bounds(floor); ok {
			view.Bounds = &b
		}
		return nil
	})
	return view, err
}

func (s *EditorService) AddRoom(sessionID string, floor, x, y int, attrs models.RoomAttributes) (models.Room, error) {
	var room models.Room
	err := s.do(sessionID, func(g *floorplan.Graph) error {
		var err error
		room, err = g.AddRoom(floor, x, y, attrs)
		return err
	})
	if err == nil {
		s.log.Debug("room added",
			zap.String("session_id", sessionID),
			zap.String("room_id", room.ID),
			zap.Int("floor", floor), zap.Int("x", x), zap.Int("y", y),
		)
	}
	return room, err
}

func (s *EditorService) EditRoom(sessionID, roomID string, attrs models.RoomAttributes) (models.Room, error) {
	var room models.Room
	err := s.do(sessionID, func(g *floorplan.Graph) error {
		var err error
		room, err = g.EditRoom(roomID, attrs)
		return err
	})
	return room, err
}

func (s *EditorService) DeleteRoom(sessionID, roomID string) error {
	return s.do(sessionID, func(g *floorplan.Graph) error {
		return g.DeleteRoom(roomID)
	})
}

func (s *EditorService) SetPropertyType(sessionID string, t models.PropertyType) (*Snapshot, error) {
	if err := s.do(sessionID, func(g *floorplan.Graph) error {
		return g.SetPropertyType(t)
	}); err != nil {
		return nil, err
	}
	return s.Snapshot(sessionID)
}

// Save переписывает документ целиком и закрывает сессию.
func (s *EditorService) Save(ctx context.Context, sessionID string) (*models.Property, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	// порядок замков: объект, потом сессия, как в attachMedia
	unlock := s.props.lock(sess.PropertyID)
	defer unlock()

	var p models.Property
	err = sess.Do(func(g *floorplan.Graph) error {
		p = g.Property()
		return s.props.repo.Replace(ctx, &p)
	})
	if err != nil {
		return nil, err
	}

	s.props.invalidate(ctx, sess.PropertyID)
	_ = s.sessions.Close(sessionID)
	s.log.Info("editor session saved",
		zap.String("session_id", sessionID),
		zap.String("property_id", sess.PropertyID),
		zap.Int("rooms", len(p.Rooms)),
	)
	return &p, nil
}

// Discard выбрасывает несохраненные изменения.
func (s *EditorService) Discard(sessionID string) error {
	if err := s.sessions.Close(sessionID); err != nil {
		return err
	}
	s.log.Info("editor session discarded", zap.String("session_id", sessionID))
	return nil
}

// mirrorMedia дописывает загруженное медиа в графы открытых сессий объекта,
// чтобы Save не затер его. Комнаты, удаленные в сессии, пропускаются.
func (s *EditorService) mirrorMedia(propertyID, roomID, ref string, merge mediaMerge) {
	for _, sess := range s.sessions.ForProperty(propertyID) {
		err := sess.Do(func(g *floorplan.Graph) error {
			room, ok := g.Room(roomID)
			if !ok {
				return nil
			}
			_, err := g.EditRoom(roomID, merge(room, ref))
			return err
		})
		if err != nil {
			s.log.Warn("mirror media into session",
				zap.String("session_id", sess.ID),
				zap.String("room_id", roomID),
				zap.Error(err),
			)
		}
	}
}

func (s *EditorService) do(sessionID string, fn func(g *floorplan.Graph) error) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.Do(fn)
}
