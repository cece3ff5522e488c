// internal/driver/escpos/image.go
package escpos

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	dotsPerChar     = 12
	maxRasterDots   = 576
	blackThreshold  = 128
	rasterMaxHeight = 0xFFFF
)

// rasterDots is the printable width in dots for a printer of width characters
func rasterDots(width int) int {
	dots := width * dotsPerChar
	if dots <= 0 || dots > maxRasterDots {
		return maxRasterDots
	}
	return dots
}

// RasterImage decodes a PNG or JPEG, scales it down to maxDots wide and
// encodes it as a GS v 0 monochrome raster bit image.
func RasterImage(data []byte, maxDots int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if width > maxDots {
		height = height * maxDots / width
		width = maxDots
		if height == 0 {
			height = 1
		}
	}
	if height > rasterMaxHeight {
		return nil, fmt.Errorf("image too tall: %d dots", height)
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(gray, gray.Bounds(), image.White, image.Point{}, draw.Src)
	if width == bounds.Dx() {
		draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, bounds, draw.Over, nil)
	}

	bytesPerRow := (width + 7) / 8
	out := make([]byte, 0, 8+bytesPerRow*height)
	out = append(out, 0x1D, 0x76, 0x30, 0x00,
		byte(bytesPerRow), byte(bytesPerRow>>8),
		byte(height), byte(height>>8),
	)

	row := make([]byte, bytesPerRow)
	for y := 0; y < height; y++ {
		for i := range row {
			row[i] = 0
		}
		for x := 0; x < width; x++ {
			if gray.GrayAt(x, y).Y < blackThreshold {
				row[x/8] |= 0x80 >> (x % 8)
			}
		}
		out = append(out, row...)
	}
	return out, nil
}
