package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fogleman/gg"
)

const imageFileName = "summary.png"

// ImageRenderer draws the summary card as a PNG under a fixed cache
// directory. The previous artifact is overwritten on every render.
type ImageRenderer struct {
	cacheDir string
}

func NewImageRenderer(cacheDir string) *ImageRenderer {
	if cacheDir == "" {
		cacheDir = "cache"
	}
	return &ImageRenderer{cacheDir: cacheDir}
}

func (r *ImageRenderer) Path() string {
	return filepath.Join(r.cacheDir, imageFileName)
}

func (r *ImageRenderer) Render(s Summary) (string, error) {
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	const width, height = 800, 600
	dc := gg.NewContext(width, height)
	dc.SetHexColor("#f5f5f5")
	dc.Clear()

	dc.SetRGB(0.1, 0.1, 0.1)
	y := 40.0
	line := func(text string) {
		dc.DrawString(text, 40, y)
		y += 22
	}

	line("Country Summary")
	y += 10
	line(fmt.Sprintf("Total Countries: %d", s.TotalCountries))
	if s.LastRefreshedAt != nil {
		line("Last Refresh: " + s.LastRefreshedAt.UTC().Format("2006-01-02 15:04:05"))
	} else {
		line("Last Refresh: never")
	}
	y += 10
	line("Top 5 countries by Estimated GDP:")
	for i, c := range s.TopByGDP {
		gdp := "n/a"
		if c.EstimatedGDP != nil {
			gdp = groupDigits(int64(*c.EstimatedGDP))
		}
		line(fmt.Sprintf("%d. %s - %s", i+1, c.Name, gdp))
	}

	path := r.Path()
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save png: %w", err)
	}
	return path, nil
}

// groupDigits formats n with thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
