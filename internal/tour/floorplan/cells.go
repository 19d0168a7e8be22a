package floorplan

import (
	"sort"

	"property-tour/internal/tour/models"
)

// ============================================================
// Grid adjacency
// ============================================================

// Порядок обхода соседей: вверх, вниз, влево, вправо. Диагонали не считаются.
var directions = [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// neighbours возвращает соседние комнаты клетки в порядке добавления комнат.
func (g *Graph) neighbours(floor, x, y int) []*models.Room {
	var out []*models.Room
	for _, r := range g.rooms {
		if r.Floor == floor && adjacent(r.PositionX, r.PositionY, x, y) {
			out = append(out, r)
		}
	}
	return out
}

func adjacent(x1, y1, x2, y2 int) bool {
	dx := x1 - x2
	dy := y1 - y2
	return (dx == 0 && (dy == 1 || dy == -1)) || (dy == 0 && (dx == 1 || dx == -1))
}

// ListEmptyAdjacentCells возвращает пустые клетки этажа, соседние хотя бы с
// одной занятой. На пустом этаже единственная допустимая клетка {0,0}.
func (g *Graph) ListEmptyAdjacentCells(floor int) []models.Cell {
	seen := make(map[models.Cell]bool)
	var out []models.Cell
	occupied := false

	for _, r := range g.rooms {
		if r.Floor != floor {
			continue
		}
		occupied = true
		for _, d := range directions {
			c := models.Cell{X: r.PositionX + d[0], Y: r.PositionY + d[1]}
			if seen[c] {
				continue
			}
			seen[c] = true
			if _, taken := g.cells[cellKey{floor: floor, x: c.X, y: c.Y}]; !taken {
				out = append(out, c)
			}
		}
	}

	if !occupied {
		return []models.Cell{{X: 0, Y: 0}}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

// Bounds считает охватывающий прямоугольник комнат этажа.
func (g *Graph) Bounds(floor int) (models.Bounds, bool) {
	var b models.Bounds
	found := false
	for _, r := range g.rooms {
		if r.Floor != floor {
			continue
		}
		if !found {
			b = models.Bounds{MinX: r.PositionX, MaxX: r.PositionX, MinY: r.PositionY, MaxY: r.PositionY}
			found = true
			continue
		}
		if r.PositionX < b.MinX {
			b.MinX = r.PositionX
		}
		if r.PositionX > b.MaxX {
			b.MaxX = r.PositionX
		}
		if r.PositionY < b.MinY {
			b.MinY = r.PositionY
		}
		if r.PositionY > b.MaxY {
			b.MaxY = r.PositionY
		}
	}
	return b, found
}

// Floors возвращает занятые этажи по возрастанию.
func (g *Graph) Floors() []int {
	seen := make(map[int]bool)
	out := []int{}
	for _, r := range g.rooms {
		if !seen[r.Floor] {
			seen[r.Floor] = true
			out = append(out, r.Floor)
		}
	}
	sort.Ints(out)
	return out
}

// normalizeConnections чистит сохраненные связи (свои id, дубли, чужие этажи,
// несоседние и несуществующие комнаты) и дописывает недостающих соседей,
// чтобы связи снова были симметричны.
func (g *Graph) normalizeConnections() {
	for _, r := range g.rooms {
		kept := make([]string, 0, len(r.Connections))
		for _, id := range r.Connections {
			other, ok := g.index[id]
			if !ok || id == r.ID || other.Floor != r.Floor {
				continue
			}
			if !adjacent(r.PositionX, r.PositionY, other.PositionX, other.PositionY) {
				continue
			}
			kept = appendUnique(kept, id)
		}
		r.Connections = kept
	}

	for _, r := range g.rooms {
		for _, n := range g.neighbours(r.Floor, r.PositionX, r.PositionY) {
			r.Connections = appendUnique(r.Connections, n.ID)
		}
	}
}
