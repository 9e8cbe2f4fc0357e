package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Preprocess cleans a rasterized page for recognition: grayscale, binarize
// with an automatic (Otsu) threshold, then a light morphological close to
// remove speckle noise.
func Preprocess(img image.Image) *image.Gray {
	gray := toGray(imaging.Grayscale(img))
	binary := binarize(gray, otsuThreshold(gray))
	return morphClose(binary)
}

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// otsuThreshold picks the threshold minimizing intra-class variance of the
// gray histogram
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[img.GrayAt(x, y).Y]++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumBack, weightBack float64
	var maxVariance float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		weightBack += float64(hist[t])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		variance := weightBack * weightFore * (meanBack - meanFore) * (meanBack - meanFore)
		if variance > maxVariance {
			maxVariance = variance
			threshold = uint8(t)
		}
	}
	return threshold
}

// binarize maps pixels above the threshold to white and the rest to black
func binarize(img *image.Gray, threshold uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// morphClose applies a 3x3 dilation followed by a 3x3 erosion on the white
// background, filling single-pixel speckle inside glyphs
func morphClose(img *image.Gray) *image.Gray {
	return erode(dilate(img))
}

func dilate(img *image.Gray) *image.Gray {
	return morph(img, func(minV, maxV uint8) uint8 { return maxV })
}

func erode(img *image.Gray) *image.Gray {
	return morph(img, func(minV, maxV uint8) uint8 { return minV })
}

func morph(img *image.Gray, pick func(minV, maxV uint8) uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			minV, maxV := uint8(255), uint8(0)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < b.Min.X || nx >= b.Max.X || ny < b.Min.Y || ny >= b.Max.Y {
						continue
					}
					v := img.GrayAt(nx, ny).Y
					if v < minV {
						minV = v
					}
					if v > maxV {
						maxV = v
					}
				}
			}
			out.SetGray(x, y, color.Gray{Y: pick(minV, maxV)})
		}
	}
	return out
}
