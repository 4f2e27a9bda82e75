package config

import "image/color"

// ClassNames is the fixed ordered class table: index is the model class id.
// It is shared process-wide and must not be mutated.
var ClassNames = []string{"Fragment", "Fiber", "Film", "Pellet"}

// ClassColors is the annotation palette, indexed like ClassNames.
var ClassColors = []color.RGBA{
	{R: 255, G: 87, B: 51, A: 255}, // Fragment, coral
	{R: 51, G: 255, B: 87, A: 255}, // Fiber, green
	{R: 51, G: 87, B: 255, A: 255}, // Film, blue
	{R: 255, G: 215, B: 0, A: 255}, // Pellet, gold
}

// AllowedExtensions lists the upload file extensions the HTTP layer accepts.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".webp"}
