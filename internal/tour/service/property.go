package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"property-tour/internal/tour/cache"
	"property-tour/internal/tour/floorplan"
	"property-tour/internal/tour/models"
	"property-tour/internal/tour/render"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ============================================================
// Property Service
// ============================================================

// PropertyRepository: хранилище документов объектов (SQLite в проде).
type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	GetByID(ctx context.Context, id string) (*models.Property, error)
	Replace(ctx context.Context, p *models.Property) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Property, error)
}

// MediaStore: файлы панорам и фото.
type MediaStore interface {
	SavePanorama(propertyID, roomID, filename string, data []byte) (string, error)
	SavePhoto(propertyID, roomID, filename string, data []byte) (string, error)
	RemoveProperty(propertyID string) error
}

// PublicProperty: то, что получает просмотрщик тура.
type PublicProperty struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	PropertyType models.PropertyType `json:"property_type"`
	EntryRoomID  string              `json:"entry_room_id,omitempty"`
	StartRoomID  string              `json:"start_room_id,omitempty"`
	Floors       []int               `json:"floors"`
	Rooms        []models.Room       `json:"rooms"`
}

// RoomView: комната с готовыми переходами для панорамы.
type RoomView struct {
	Room     models.Room      `json:"room"`
	Name     string           `json:"display_name"`
	Hotspots []models.Hotspot `json:"hotspots"`
}

type PropertyService struct {
	repo     PropertyRepository
	cache    cache.KV
	cacheTTL time.Duration
	media    MediaStore
	renderer *render.Renderer
	log      *zap.Logger
	newID    func() string

	locks   sync.Map // propertyID -> *sync.Mutex
	onMedia mediaHook
}

// mediaHook получает каждое сохраненное медиа, чтобы открытые сессии
// правки увидели его до своего Save.
type mediaHook func(propertyID, roomID, ref string, merge mediaMerge)

type mediaMerge func(room models.Room, ref string) models.RoomAttributes

func NewPropertyService(repo PropertyRepository, kv cache.KV, cacheTTL time.Duration, media MediaStore, log *zap.Logger) *PropertyService {
	if kv == nil {
		kv = cache.NopKV{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PropertyService{
		repo:     repo,
		cache:    kv,
		cacheTTL: cacheTTL,
		media:    media,
		renderer: render.NewRenderer(),
		log:      log,
		newID:    uuid.NewString,
	}
}

func (s *PropertyService) Get(ctx context.Context, id string) (*models.Property, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *PropertyService) List(ctx context.Context) ([]models.Property, error) {
	return s.repo.List(ctx)
}

// Create присваивает id и прогоняет документ через граф, чтобы связи
// и вход были согласованы еще до записи.
func (s *PropertyService) Create(ctx context.Context, p models.Property) (*models.Property, error) {
	p.ID = s.newID()
	normalized, err := normalize(p)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &normalized); err != nil {
		return nil, err
	}
	s.log.Info("property created",
		zap.String("property_id", normalized.ID),
		zap.String("property_type", string(normalized.PropertyType)),
		zap.Int("rooms", len(normalized.Rooms)),
	)
	return &normalized, nil
}

// Replace перезаписывает документ целиком.
func (s *PropertyService) Replace(ctx context.Context, id string, p models.Property) (*models.Property, error) {
	defer s.lock(id)()
	p.ID = id
	normalized, err := normalize(p)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Replace(ctx, &normalized); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	s.log.Info("property replaced", zap.String("property_id", id), zap.Int("rooms", len(normalized.Rooms)))
	return &normalized, nil
}

func (s *PropertyService) Delete(ctx context.Context, id string) error {
	defer s.lock(id)()
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	if s.media != nil {
		if err := s.media.RemoveProperty(id); err != nil {
			s.log.Warn("remove property media", zap.String("property_id", id), zap.Error(err))
		}
	}
	s.log.Info("property deleted", zap.String("property_id", id))
	return nil
}

// ============================================================
// Viewer
// ============================================================

// PublicView отдает документ для просмотрщика, читая через кэш.
func (s *PropertyService) PublicView(ctx context.Context, id string) (*PublicProperty, error) {
	key := cache.PropertyKey(id)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var view PublicProperty
		if err := json.Unmarshal([]byte(raw), &view); err == nil {
			return &view, nil
		}
		s.log.Warn("drop corrupt cache entry", zap.String("key", key))
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	g, p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &PublicProperty{
		ID:           p.ID,
		Title:        p.Title,
		PropertyType: g.PropertyType(),
		EntryRoomID:  g.EntryRoomID(),
		Floors:       g.Floors(),
		Rooms:        g.Rooms(),
	}
	if start, ok := g.StartRoom(); ok {
		view.StartRoomID = start.ID
	}

	if raw, err := json.Marshal(view); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
			s.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return view, nil
}

func (s *PropertyService) RoomView(ctx context.Context, propertyID, roomID string) (*RoomView, error) {
	g, _, err := s.load(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	room, ok := g.Room(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", floorplan.ErrRoomNotFound, roomID)
	}
	hotspots, err := g.DeriveHotspots(roomID)
	if err != nil {
		return nil, err
	}
	return &RoomView{Room: room, Name: floorplan.DisplayName(room), Hotspots: hotspots}, nil
}

func (s *PropertyService) FloorPlanSVG(ctx context.Context, propertyID string, floor int) (string, error) {
	g, _, err := s.load(ctx, propertyID)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(g, floor)
}

// ============================================================
// Media
// ============================================================

// AttachPanorama сохраняет файл панорамы и прописывает ссылку в комнату.
func (s *PropertyService) AttachPanorama(ctx context.Context, propertyID, roomID, filename string, data []byte) (models.Room, error) {
	return s.attachMedia(ctx, propertyID, roomID,
		func() (string, error) { return s.media.SavePanorama(propertyID, roomID, filename, data) },
		mergePanorama)
}

// AddPhoto сохраняет фото и дописывает ссылку в конец списка фото комнаты.
func (s *PropertyService) AddPhoto(ctx context.Context, propertyID, roomID, filename string, data []byte) (models.Room, error) {
	return s.attachMedia(ctx, propertyID, roomID,
		func() (string, error) { return s.media.SavePhoto(propertyID, roomID, filename, data) },
		mergePhoto)
}

func mergePanorama(_ models.Room, ref string) models.RoomAttributes {
	return models.RoomAttributes{PanoramaPhoto: &ref}
}

func mergePhoto(room models.Room, ref string) models.RoomAttributes {
	photos := append(append([]string{}, room.Photos...), ref)
	return models.RoomAttributes{Photos: photos}
}

// attachMedia держит замок объекта на всем цикле чтение-правка-запись,
// иначе параллельные загрузки теряют друг друга.
func (s *PropertyService) attachMedia(ctx context.Context, propertyID, roomID string, store func() (string, error), merge mediaMerge) (models.Room, error) {
	if s.media == nil {
		return models.Room{}, errors.New("media storage is not configured")
	}
	defer s.lock(propertyID)()

	g, _, err := s.load(ctx, propertyID)
	if err != nil {
		return models.Room{}, err
	}
	room, ok := g.Room(roomID)
	if !ok {
		return models.Room{}, fmt.Errorf("%w: %q", floorplan.ErrRoomNotFound, roomID)
	}
	ref, err := store()
	if err != nil {
		return models.Room{}, err
	}
	updated, err := g.EditRoom(roomID, merge(room, ref))
	if err != nil {
		return models.Room{}, err
	}

	p := g.Property()
	if err := s.repo.Replace(ctx, &p); err != nil {
		return models.Room{}, err
	}
	s.invalidate(ctx, propertyID)
	if s.onMedia != nil {
		s.onMedia(propertyID, roomID, ref, merge)
	}
	s.log.Info("room media attached", zap.String("property_id", propertyID), zap.String("room_id", roomID))
	return updated, nil
}

// ============================================================
// Helpers
// ============================================================

func (s *PropertyService) load(ctx context.Context, id string) (*floorplan.Graph, *models.Property, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	g, err := floorplan.Load(*p)
	if err != nil {
		return nil, nil, fmt.Errorf("load property %s: %w", id, err)
	}
	return g, p, nil
}

// lock берет замок объекта; вернувшаяся функция его снимает.
func (s *PropertyService) lock(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *PropertyService) invalidate(ctx context.Context, id string) {
	if err := s.cache.Del(ctx, cache.PropertyKey(id)); err != nil {
		s.log.Warn("cache invalidate failed", zap.String("property_id", id), zap.Error(err))
	}
}

func normalize(p models.Property) (models.Property, error) {
	g, err := floorplan.Load(p)
	if err != nil {
		return models.Property{}, err
	}
	return g.Property(), nil
}
