package coverage

import (
	"image"
	"os"

	"carinspect/internal/config"
	"carinspect/internal/media/video"
	"carinspect/internal/vision"
)

// Report estimates how much of the vehicle surface the capture showed.
type Report struct {
	OK            bool     `json:"ok"`
	Message       string   `json:"message"`
	CoverageRatio float64  `json:"coverage_ratio"`
	FramesUsed    int      `json:"frames_used"`
	VisitedCells  int      `json:"visited_cells"`
	Cells         int      `json:"cells"`
	Hints         []string `json:"hints"`
}

// Estimate splits each frame into a Grid x Grid lattice and marks a cell as
// visited when the denoised difference to the previous frame is active in
// more than CellActive of its pixels. The ratio is the share of cells visited
// at least once.
func Estimate(framePaths []string, opts config.Coverage) Report {
	existing := make([]string, 0, len(framePaths))
	for _, path := range framePaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			existing = append(existing, path)
		}
	}
	grid := max(1, opts.Grid)
	report := Report{Cells: grid * grid, Hints: []string{}}
	if len(existing) < opts.MinFrames {
		report.Message = "Not enough frames for coverage analysis."
		report.Hints = append(report.Hints, "Film the vehicle from a wider angle while walking around it.")
		return report
	}

	visited := make([]int, grid*grid)
	var prev *vision.Plane
	for _, path := range existing {
		img, err := video.OpenImage(path)
		if err != nil {
			continue
		}
		gray := vision.GaussianBlur(vision.Gray(img), 5, 0)
		report.FramesUsed++
		if prev != nil && prev.W == gray.W && prev.H == gray.H {
			active := vision.MedianBlur(vision.Threshold(vision.AbsDiff(prev, gray), opts.DiffThreshold), 5)
			markCells(active, grid, opts.CellActive, visited)
		}
		prev = gray
	}

	report.OK = true
	for _, hits := range visited {
		if hits > 0 {
			report.VisitedCells++
		}
	}
	if report.VisitedCells == 0 {
		report.Message = "Coverage looks low."
		report.Hints = append(report.Hints, "Walk around the vehicle for a 360° recording and show each panel separately.")
		return report
	}

	report.CoverageRatio = float64(report.VisitedCells) / float64(report.Cells)
	report.Message = "Coverage analysis complete."
	report.Hints = append(report.Hints, tierHints(report.CoverageRatio, opts)...)
	return report
}

func markCells(active *vision.Mask, grid int, threshold float64, visited []int) {
	gh := active.H / grid
	gw := active.W / grid
	for r := 0; r < grid; r++ {
		for c := 0; c < grid; c++ {
			cell := image.Rect(c*gw, r*gh, (c+1)*gw, (r+1)*gh)
			if r == grid-1 {
				cell.Max.Y = active.H
			}
			if c == grid-1 {
				cell.Max.X = active.W
			}
			if cell.Empty() {
				continue
			}
			if active.FractionIn(cell) > threshold {
				visited[r*grid+c]++
			}
		}
	}
}

func tierHints(ratio float64, opts config.Coverage) []string {
	switch {
	case ratio < opts.Low:
		return []string{
			"Coverage is low: show the front, side, and rear panels separately (360°).",
			"Do not move too fast: pause for 1-2 seconds on each panel.",
		}
	case ratio < opts.Medium:
		return []string{"Coverage is moderate: also show the fenders, door sills, bumper corners, and roof."}
	default:
		return []string{"Coverage is good: there is enough footage for an accurate analysis."}
	}
}
