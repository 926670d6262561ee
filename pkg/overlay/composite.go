package overlay

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Composite draws asset over a copy of face using rt, which must be expressed in
// the face image's natural pixels.
func Composite(face image.Image, asset image.Image, rt RenderTransform) *image.RGBA {
	bounds := face.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), face, bounds.Min, draw.Src)

	if rt.Relative || rt.Scale <= 0 {
		return dst
	}

	xdraw.CatmullRom.Transform(dst, AssetToImage(asset.Bounds(), rt), asset, asset.Bounds(), xdraw.Over, nil)
	return dst
}

// AssetToImage returns the affine map from asset pixels to destination pixels:
// the asset centre lands on (rt.X, rt.Y), rotated by rt.RotationRad and scaled
// by rt.Scale.
func AssetToImage(src image.Rectangle, rt RenderTransform) f64.Aff3 {
	s := rt.Scale
	cos, sin := math.Cos(rt.RotationRad), math.Sin(rt.RotationRad)
	cx := float64(src.Min.X) + float64(src.Dx())/2
	cy := float64(src.Min.Y) + float64(src.Dy())/2

	return f64.Aff3{
		s * cos, -s * sin, rt.X - s*cos*cx + s*sin*cy,
		s * sin, s * cos, rt.Y - s*sin*cx - s*cos*cy,
	}
}
