package render

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"property-tour/internal/tour/floorplan"
	"property-tour/internal/tour/models"
)

// ============================================================
// Floor Plan Renderer
// ============================================================

var ErrEmptyFloor = errors.New("floor has no rooms")

const (
	cellSize = 120.0
	gap      = 12.0
	margin   = 24.0
)

type Renderer struct {
	CellSize float64
}

func NewRenderer() *Renderer {
	return &Renderer{CellSize: cellSize}
}

// Render собирает SVG-план одного этажа: клетки комнат, связи между
// центрами соседей и подписи.
func (r *Renderer) Render(g *floorplan.Graph, floor int) (string, error) {
	if g == nil {
		return "", fmt.Errorf("graph is nil")
	}
	bounds, ok := g.Bounds(floor)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrEmptyFloor, floor)
	}
	rooms := g.RoomsOnFloor(floor)

	width := float64(bounds.Width())*r.CellSize + 2*margin
	height := float64(bounds.Height())*r.CellSize + 2*margin

	var elements []string
	elements = append(elements, r.renderConnections(rooms, bounds)...)
	elements = append(elements, r.renderRooms(rooms, bounds, g.EntryRoomID())...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" data-floor="%d">`,
		formatFloat(width), formatFloat(height), formatFloat(width), formatFloat(height), floor))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) origin(room models.Room, b models.Bounds) (float64, float64) {
	x := margin + float64(room.PositionX-b.MinX)*r.CellSize
	y := margin + float64(room.PositionY-b.MinY)*r.CellSize
	return x, y
}

func (r *Renderer) center(room models.Room, b models.Bounds) (float64, float64) {
	x, y := r.origin(room, b)
	return x + r.CellSize/2, y + r.CellSize/2
}

func (r *Renderer) renderRooms(rooms []models.Room, b models.Bounds, entryID string) []string {
	var out []string
	for _, room := range rooms {
		x, y := r.origin(room, b)
		size := r.CellSize - gap

		fill := "#f4f1ea"
		if room.ID == entryID {
			fill = "#d8ecd2"
		}
		class := "room room-" + string(room.RoomType)
		if room.PanoramaPhoto != "" {
			class += " has-panorama"
		}

		out = append(out, fmt.Sprintf(`<rect id="%s" class="%s" x="%s" y="%s" width="%s" height="%s" fill="%s" stroke="#333" />`,
			html.EscapeString(room.ID), html.EscapeString(class), formatFloat(x+gap/2), formatFloat(y+gap/2),
			formatFloat(size), formatFloat(size), fill))

		cx, cy := r.center(room, b)
		out = append(out, fmt.Sprintf(`<text x="%s" y="%s" text-anchor="middle" dominant-baseline="middle" font-size="14">%s</text>`,
			formatFloat(cx), formatFloat(cy), html.EscapeString(floorplan.DisplayName(room))))
	}
	return out
}

// renderConnections рисует каждую связь один раз.
func (r *Renderer) renderConnections(rooms []models.Room, b models.Bounds) []string {
	byID := make(map[string]models.Room, len(rooms))
	for _, room := range rooms {
		byID[room.ID] = room
	}

	drawn := make(map[[2]string]bool)
	var out []string
	for _, room := range rooms {
		for _, id := range room.Connections {
			other, ok := byID[id]
			if !ok {
				continue
			}
			key := [2]string{room.ID, id}
			if id < room.ID {
				key = [2]string{id, room.ID}
			}
			if drawn[key] {
				continue
			}
			drawn[key] = true

			x1, y1 := r.center(room, b)
			x2, y2 := r.center(other, b)
			out = append(out, fmt.Sprintf(`<line class="connection" x1="%s" y1="%s" x2="%s" y2="%s" stroke="#8a8a8a" stroke-width="4" />`,
				formatFloat(x1), formatFloat(y1), formatFloat(x2), formatFloat(y2)))
		}
	}
	return out
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
