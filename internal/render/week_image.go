// Package render рисует недельную сетку слотов в PNG.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/queueless/booking/internal/model"
)

// Константы размеров и отступов
const (
	imageWidth       = 1100
	headerHeight     = 70
	dayHeaderHeight  = 40
	leftLabelsWidth  = 90
	legendHeight     = 50
	rowHeight        = 44
	cellPadding      = 5.0
	slotBorderRadius = 6.0
	shadowOffset     = 2.0
	totalDaysInWeek  = 7
)

// Цветовая схема
var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 255}
	labelColor     = color.RGBA{110, 115, 120, 255}
	lineColor      = color.NRGBA{150, 150, 150, 255}
	todayBgColor   = color.NRGBA{255, 99, 71, 90}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{225, 225, 225, 255}
	closedDayColor = color.NRGBA{190, 190, 195, 255}

	slotFreeColor       = color.RGBA{133, 193, 85, 230}
	slotBookedColor     = color.RGBA{255, 182, 193, 255}
	slotMissingColor    = color.RGBA{0, 0, 0, 0}
	slotTextColor       = color.RGBA{20, 24, 28, 230}
	slotBookedTextColor = color.RGBA{120, 40, 50, 255}
	slotShadowColor     = color.RGBA{0, 0, 0, 20}
)

// Week данные для отрисовки одной недели
type Week struct {
	Start     time.Time // понедельник
	Labels    []string  // строки сетки; метки слотов дополняют список
	Slots     []*model.Slot
	ClosedDay time.Weekday
	Today     time.Time
}

// WeekImage рисует неделю: колонка на день, строка на метку времени
func WeekImage(w Week) ([]byte, error) {
	start := model.NormalizeDate(w.Start)
	labels := collectLabels(w.Labels, w.Slots)
	if len(labels) == 0 {
		return nil, fmt.Errorf("render week %s: no time labels", model.DateKey(start))
	}

	byKey := make(map[model.SlotKey]*model.Slot, len(w.Slots))
	for _, s := range w.Slots {
		byKey[s.Key()] = s
	}

	height := headerHeight + dayHeaderHeight + len(labels)*rowHeight + legendHeight
	dayWidth := float64(imageWidth-leftLabelsWidth-10) / totalDaysInWeek

	dc := gg.NewContext(imageWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	drawHeader(dc, start)
	drawLabels(dc, labels)

	today := model.NormalizeDate(w.Today)
	for i := 0; i < totalDaysInWeek; i++ {
		date := start.AddDate(0, 0, i)
		x := float64(leftLabelsWidth) + float64(i)*dayWidth

		drawDayColumn(dc, date, i, x, dayWidth, len(labels), date.Weekday() == w.ClosedDay, date.Equal(today))
		for row, label := range labels {
			slot := byKey[model.SlotKey{Date: model.DateKey(date), TimeLabel: label}]
			drawSlot(dc, slot, x, rowY(row), dayWidth)
		}
	}

	drawGrid(dc, len(labels))
	drawLegend(dc, float64(height-legendHeight))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// collectLabels объединяет настроенные метки с метками существующих слотов
// и сортирует их по времени суток
func collectLabels(configured []string, slots []*model.Slot) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(label string) {
		if label != "" && !seen[label] {
			seen[label] = true
			out = append(out, label)
		}
	}
	for _, l := range configured {
		add(l)
	}
	for _, s := range slots {
		add(s.TimeLabel)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, okI := parseLabel(out[i])
		tj, okJ := parseLabel(out[j])
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI != okJ:
			return okI
		default:
			return out[i] < out[j]
		}
	})
	return out
}

var labelLayouts = []string{"03:04 PM", "3:04 PM", "15:04"}

func parseLabel(label string) (time.Time, bool) {
	for _, layout := range labelLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func rowY(row int) float64 {
	return float64(headerHeight+dayHeaderHeight) + float64(row*rowHeight)
}

func drawHeader(dc *gg.Context, start time.Time) {
	end := start.AddDate(0, 0, totalDaysInWeek-1)
	title := fmt.Sprintf("Week of %s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))

	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, float64(imageWidth)/2, float64(headerHeight)/2, 0.5, 0.5)
}

func drawLabels(dc *gg.Context, labels []string) {
	dc.SetColor(labelColor)
	for row, label := range labels {
		dc.DrawStringAnchored(label, float64(leftLabelsWidth)-10, rowY(row)+rowHeight/2, 1, 0.5)
	}
}

func drawDayColumn(dc *gg.Context, date time.Time, index int, x, width float64, rows int, closed, isToday bool) {
	top := float64(headerHeight)
	height := float64(dayHeaderHeight + rows*rowHeight)

	switch {
	case closed:
		dc.SetColor(closedDayColor)
	case isToday:
		dc.SetColor(todayBgColor)
	case index%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, top, width, height)
	dc.Fill()

	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("Mon"), x+width/2, top+12, 0.5, 0.5)
	dc.DrawStringAnchored(date.Format("01/02"), x+width/2, top+28, 0.5, 0.5)

	if closed {
		dc.SetColor(labelColor)
		dc.DrawStringAnchored("closed", x+width/2, top+float64(dayHeaderHeight)+float64(rows*rowHeight)/2, 0.5, 0.5)
	}
}

func drawSlot(dc *gg.Context, slot *model.Slot, x, y, width float64) {
	if slot == nil {
		return
	}

	fill := slotColor(slot)
	w := width - cellPadding*2
	h := float64(rowHeight) - cellPadding*2

	dc.SetColor(slotShadowColor)
	dc.DrawRoundedRectangle(x+cellPadding+shadowOffset, y+cellPadding+shadowOffset, w, h, slotBorderRadius)
	dc.Fill()

	dc.SetColor(fill)
	dc.DrawRoundedRectangle(x+cellPadding, y+cellPadding, w, h, slotBorderRadius)
	dc.Fill()

	dc.SetColor(darkenColor(fill, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+cellPadding, y+cellPadding, w, h, slotBorderRadius)
	dc.Stroke()

	text, clr := "free", slotTextColor
	if slot.IsBooked {
		text, clr = "booked", slotBookedTextColor
	}
	dc.SetColor(clr)
	dc.DrawStringAnchored(text, x+width/2, y+float64(rowHeight)/2, 0.5, 0.5)
}

func slotColor(slot *model.Slot) color.RGBA {
	if slot == nil {
		return slotMissingColor
	}
	if slot.IsBooked {
		return slotBookedColor
	}
	return slotFreeColor
}

func drawGrid(dc *gg.Context, rows int) {
	dc.SetColor(lineColor)
	dc.SetLineWidth(0.3)
	for row := 0; row <= rows; row++ {
		y := rowY(row)
		dc.DrawLine(float64(leftLabelsWidth), y, float64(imageWidth-10), y)
		dc.Stroke()
	}
}

func drawLegend(dc *gg.Context, top float64) {
	items := []struct {
		label string
		clr   color.Color
	}{
		{"Free", slotFreeColor},
		{"Booked", slotBookedColor},
		{"Closed", closedDayColor},
	}

	const boxW, boxH = 20.0, 14.0
	x := float64(leftLabelsWidth)
	y := top + (legendHeight-boxH)/2

	for _, item := range items {
		dc.SetColor(item.clr)
		dc.DrawRoundedRectangle(x, y, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(item.label, x+boxW+8, y+boxH/2, 0, 0.5)
		x += boxW + 8 + float64(len(item.label)*7) + 30
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}
