package app

import (
	"fmt"
	"sort"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/makistry/meshview/pkg/viewer"
	"github.com/makistry/meshview/version"
)

// drawUI draws the overlay text
func (a *App) drawUI() {
	y := float32(10)
	lineHeight := float32(20)
	fontSize16 := int32(16)
	fontSize14 := int32(14)
	fontSize12 := int32(12)

	screenWidth := int32(rl.GetScreenWidth())
	screenHeight := int32(rl.GetScreenHeight())

	// Load status in the center of the viewport
	if status := a.session.Status(); status.State == viewer.StateLoading || status.State == viewer.StateError {
		text := status.String()
		col := rl.Yellow
		if status.State == viewer.StateError {
			col = rl.NewColor(255, 100, 100, 255)
		}
		width := rl.MeasureText(text, 18)
		boxX := (screenWidth - width) / 2
		boxY := screenHeight / 2
		rl.DrawRectangle(boxX-10, boxY-10, width+20, 38, rl.NewColor(0, 0, 0, 180))
		rl.DrawText(text, boxX, boxY, 18, col)
	}

	// === LAYERS ===
	rl.DrawText("Layers:", 10, int32(y), fontSize16, rl.Yellow)
	y += lineHeight
	layers := a.session.Layers()
	sort.Slice(layers, func(i, j int) bool { return layers[i].Priority < layers[j].Priority })
	for _, l := range layers {
		line := fmt.Sprintf("  %d %s: %d triangles", l.Priority, l.Role, l.TriangleCount)
		rl.DrawText(line, 10, int32(y), fontSize14, rl.White)
		y += lineHeight
	}
	for role, err := range a.loadErrors {
		rl.DrawText(fmt.Sprintf("  %s: %v", role, err), 10, int32(y), fontSize14, rl.NewColor(255, 100, 100, 255))
		y += lineHeight
	}
	if a.lastLoad != nil {
		size := a.lastLoad.Box.Size()
		rl.DrawText(fmt.Sprintf("  Size: %.2f x %.2f x %.2f", size.X, size.Y, size.Z), 10, int32(y), fontSize14, rl.NewColor(100, 200, 255, 255))
		y += lineHeight
	}
	y += lineHeight

	if a.view.showHelp {
		// === VIEW ===
		rl.DrawText("View:", 10, int32(y), fontSize16, rl.Yellow)
		y += lineHeight
		rl.DrawText("  Home: Reset | T: Top | B: Bottom", 10, int32(y), fontSize14, rl.LightGray)
		y += lineHeight
		rl.DrawText("  1: Front | 2: Back | 3: Left | 4: Right", 10, int32(y), fontSize14, rl.LightGray)
		y += lineHeight
		rl.DrawText("  Space: Auto-rotate | R: Reload", 10, int32(y), fontSize14, rl.LightGray)
		y += lineHeight * 2

		// === NAVIGATE ===
		rl.DrawText("Navigate:", 10, int32(y), fontSize16, rl.Yellow)
		y += lineHeight
		rl.DrawText("  Left Drag: Rotate | Shift+Drag: Pan", 10, int32(y), fontSize14, rl.LightGray)
		y += lineHeight
		rl.DrawText("  Mouse Wheel: Zoom | Middle: Pan", 10, int32(y), fontSize14, rl.LightGray)
		y += lineHeight
		rl.DrawText("  F: Shell | W: Wireframe | C: Result | H: Help", 10, int32(y), fontSize14, rl.LightGray)
	}

	// Version and FPS in bottom-left corner
	bottomY := screenHeight - 30
	versionText := fmt.Sprintf("v%s", version.GetVersion())
	rl.DrawText(versionText, 10, bottomY, fontSize12, rl.Gray)
	versionWidth := rl.MeasureText(versionText, fontSize12)
	rl.DrawText(fmt.Sprintf("FPS: %d", rl.GetFPS()), 10+versionWidth+15, bottomY, fontSize12, rl.Lime)
}
