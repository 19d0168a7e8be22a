package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ============================================================
// Media Storage
// ============================================================

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrInvalidPath      = errors.New("invalid media path")
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// URLPrefix: префикс ссылок, под которым медиа отдаются наружу.
const URLPrefix = "/media"

type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) PropertyDir(propertyID string) string {
	return filepath.Join(s.root, propertyID)
}

func (s *FileStorage) RoomDir(propertyID, roomID string) string {
	return filepath.Join(s.PropertyDir(propertyID), roomID)
}

func (s *FileStorage) PhotosDir(propertyID, roomID string) string {
	return filepath.Join(s.RoomDir(propertyID, roomID), "photos")
}

// SavePanorama записывает единственную панораму комнаты, заменяя прежнюю.
func (s *FileStorage) SavePanorama(propertyID, roomID, filename string, data []byte) (string, error) {
	ext, err := imageExt(filename)
	if err != nil {
		return "", err
	}
	if err := checkIDs(propertyID, roomID); err != nil {
		return "", err
	}
	dir := s.RoomDir(propertyID, roomID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir room dir: %w", err)
	}

	name := "panorama" + ext
	if err := writeAtomic(dir, name, data); err != nil {
		return "", fmt.Errorf("write panorama: %w", err)
	}
	// прежняя панорама могла быть в другом формате
	matches, _ := filepath.Glob(filepath.Join(dir, "panorama.*"))
	for _, m := range matches {
		if filepath.Base(m) != name {
			_ = os.Remove(m)
		}
	}
	return path.Join(URLPrefix, propertyID, roomID, name), nil
}

// SavePhoto добавляет обычное фото комнаты под случайным именем.
func (s *FileStorage) SavePhoto(propertyID, roomID, filename string, data []byte) (string, error) {
	ext, err := imageExt(filename)
	if err != nil {
		return "", err
	}
	if err := checkIDs(propertyID, roomID); err != nil {
		return "", err
	}
	dir := s.PhotosDir(propertyID, roomID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir photos dir: %w", err)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return path.Join(URLPrefix, propertyID, roomID, "photos", name), nil
}

// Resolve переводит относительный путь под /media в путь на диске.
func (s *FileStorage) Resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || strings.Contains(rel, "..") {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return full, nil
}

// RemoveProperty удаляет все медиа объекта.
func (s *FileStorage) RemoveProperty(propertyID string) error {
	if err := checkIDs(propertyID); err != nil {
		return err
	}
	return os.RemoveAll(s.PropertyDir(propertyID))
}

// writeAtomic пишет во временный файл и переименовывает его, так что
// при сбое остается прежний файл.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func imageExt(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}
	return ext, nil
}

func checkIDs(ids ...string) error {
	for _, id := range ids {
		if id == "" || id == "." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
			return fmt.Errorf("%w: %q", ErrInvalidPath, id)
		}
	}
	return nil
}
