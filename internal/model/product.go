package model

import "github.com/shopspring/decimal"

// PrintPosition is the garment side a print area sits on.
type PrintPosition string

const (
	PositionFront PrintPosition = "front"
	PositionBack  PrintPosition = "back"
)

// PrintFormat is the size class of a print area.
type PrintFormat string

const (
	FormatPocket PrintFormat = "pocket"
	FormatA4     PrintFormat = "a4"
	FormatA3     PrintFormat = "a3"
	FormatCustom PrintFormat = "custom"
)

// fixedFormatSizes holds the pixel dimensions implied by the non-custom formats.
var fixedFormatSizes = map[PrintFormat][2]int{
	FormatPocket: {100, 100},
	FormatA4:     {210, 297},
	FormatA3:     {297, 420},
}

// FixedSize returns the width and height a format implies; ok is false for custom.
func (f PrintFormat) FixedSize() (width, height int, ok bool) {
	size, ok := fixedFormatSizes[f]
	return size[0], size[1], ok
}

// Bounds is a pixel rectangle.
type Bounds struct {
	X      int `json:"x" validate:"gte=0"`
	Y      int `json:"y" validate:"gte=0"`
	Width  int `json:"width" validate:"gte=0"`
	Height int `json:"height" validate:"gte=0"`
}

// PrintArea is a named region of a product where a visual may be printed.
type PrintArea struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Position PrintPosition `json:"position" validate:"oneof=front back"`
	Format   PrintFormat   `json:"format" validate:"oneof=pocket a4 a3 custom"`
	Bounds   Bounds        `json:"bounds"`
}

// VisualSettings is the default placement of a visual inside a print area.
type VisualSettings struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
}

// Product is a customizable apparel item.
type Product struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	Price                 decimal.Decimal `json:"price"`
	Image                 string          `json:"image"`
	SecondaryImage        string          `json:"secondaryImage"`
	Sizes                 []string        `json:"sizes"`
	Colors                []string        `json:"colors"`
	Type                  string          `json:"type"`
	LinkedLotteries       []int64         `json:"linkedLotteries"`
	Customizable          bool            `json:"customizable"`
	PrintAreas            []PrintArea     `json:"printAreas" validate:"dive"`
	DefaultVisual         *int64          `json:"defaultVisual,omitempty"`
	DefaultVisualSettings *VisualSettings `json:"defaultVisualSettings,omitempty"`
	Featured              bool            `json:"featured"`
}
